package validators

import "go.mongodb.org/mongo-driver/bson"

var objectIDString = bson.M{
	"bsonType":  "string",
	"minLength": 24,
	"maxLength": 24,
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"resource_id",
			"user_id",
			"organization_id",
			"title",
			"start_time",
			"end_time",
			"status",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"resource_id": objectIDString,

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"organization_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"purpose": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"attendees_count": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"priority": bson.M{
				"bsonType": []string{"int", "long"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"PENDING",
					"APPROVED",
					"REJECTED",
					"CANCELLED",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var BookingApprovalValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"status",
			"approver_id",
			"approved_at",
		},
		"properties": bson.M{
			"booking_id": objectIDString,
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"APPROVED", "REJECTED"},
			},
			"approver_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"comments": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},
			"approved_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
