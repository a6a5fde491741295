package validators

import "go.mongodb.org/mongo-driver/bson"

var SubscriptionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user_id",
			"facility_id",
			"weekly_slots",
			"months",
			"start_date",
			"end_date",
			"monthly_amount",
			"total_amount",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"facility_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"weekly_slots": bson.M{
				"bsonType": "object",
				"additionalProperties": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": []string{"start", "end"},
						"properties": bson.M{
							"start": bson.M{
								"bsonType": "string",
								"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
							},
							"end": bson.M{
								"bsonType": "string",
								"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
							},
						},
					},
				},
			},

			"months": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  12,
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"end_date": bson.M{
				"bsonType": "date",
			},

			"monthly_amount": bson.M{
				"bsonType": []string{"double", "int"},
				"minimum":  0,
			},

			"total_amount": bson.M{
				"bsonType": []string{"double", "int"},
				"minimum":  0,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"active",
					"expired",
					"cancelled",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
