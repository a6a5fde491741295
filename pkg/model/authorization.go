package model

import "time"

// AuthKind tags the source that authorizes a parking session.
type AuthKind string

const (
	AuthReservation  AuthKind = "reservation"
	AuthSubscription AuthKind = "subscription"
	AuthNone         AuthKind = "none"
)

// Authorization is the tagged variant consumed by the session lifecycle and
// the violation detector: a session is backed by a reservation, by a
// subscription, or by nothing.
type Authorization struct {
	Kind         AuthKind
	Reservation  *Reservation
	Subscription *Subscription
}

func ReservationAuth(r *Reservation) Authorization {
	return Authorization{Kind: AuthReservation, Reservation: r}
}

func SubscriptionAuth(s *Subscription) Authorization {
	return Authorization{Kind: AuthSubscription, Subscription: s}
}

func NoAuth() Authorization {
	return Authorization{Kind: AuthNone}
}

// AuthorizedEnd returns the latest instant the session may end without an
// overstay penalty, or nil when the authorization is not individually
// time-boxed (subscriptions) or absent.
func (a Authorization) AuthorizedEnd() *time.Time {
	if a.Kind == AuthReservation && a.Reservation != nil {
		end := a.Reservation.EndTime
		return &end
	}
	return nil
}
