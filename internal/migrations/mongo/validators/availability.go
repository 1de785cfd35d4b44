package validators

import "go.mongodb.org/mongo-driver/bson"

var AvailabilityRuleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"resource_id", "day_of_week", "start_time", "end_time", "is_available"},
		"properties": bson.M{
			"resource_id": objectIDString,
			"day_of_week": bson.M{
				"bsonType": "string",
				"enum": []string{
					"MONDAY",
					"TUESDAY",
					"WEDNESDAY",
					"THURSDAY",
					"FRIDAY",
					"SATURDAY",
					"SUNDAY",
				},
			},
			"start_time":   bson.M{"bsonType": "date"},
			"end_time":     bson.M{"bsonType": "date"},
			"is_available": bson.M{"bsonType": "bool"},
		},
	},
}
