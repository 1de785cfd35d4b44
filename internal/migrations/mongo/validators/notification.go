package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"user_id", "title", "message", "type", "is_read", "created_at"},
		"properties": bson.M{
			"user_id": bson.M{"bsonType": "string", "minLength": 1},
			"title":   bson.M{"bsonType": "string", "minLength": 1, "maxLength": 200},
			"message": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 2000},
			"type": bson.M{
				"bsonType": "string",
				"enum":     []string{"INFO", "SUCCESS", "WARNING"},
			},
			"is_read":    bson.M{"bsonType": "bool"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var AuditLogValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"action", "entity", "created_at"},
		"properties": bson.M{
			"action": bson.M{
				"bsonType": "string",
				"enum":     []string{"CREATE", "UPDATE", "DELETE"},
			},
			"entity":     bson.M{"bsonType": "string"},
			"entity_id":  bson.M{"bsonType": "string"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
