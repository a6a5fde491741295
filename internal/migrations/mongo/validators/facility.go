package validators

import "go.mongodb.org/mongo-driver/bson"

var FacilityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"owner_id",
			"name",
			"latitude",
			"longitude",
			"capacity",
			"hourly_rate",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"latitude": bson.M{
				"bsonType": []string{"double", "int"},
				"minimum":  -90,
				"maximum":  90,
			},

			"longitude": bson.M{
				"bsonType": []string{"double", "int"},
				"minimum":  -180,
				"maximum":  180,
			},

			"capacity": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"hourly_rate": bson.M{
				"bsonType": []string{"double", "int"},
				"minimum":  0,
			},

			"opening_hours": bson.M{
				"bsonType": "object",
				"additionalProperties": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": []string{"open", "close"},
						"properties": bson.M{
							"open": bson.M{
								"bsonType": "string",
								"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
							},
							"close": bson.M{
								"bsonType": "string",
								"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
							},
						},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
