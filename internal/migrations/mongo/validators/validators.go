// Package validators holds the JSON-schema validators attached to the
// mongo collections. They are the storage-level backstop for invariants
// the application already enforces.
package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"user_id", "asset_id", "start_time", "end_time", "status", "final_amount", "currency"},
		"properties": bson.M{
			"user_id":  bson.M{"bsonType": "string", "minLength": 1},
			"asset_id": bson.M{"bsonType": "string", "minLength": 1},
			"status": bson.M{
				"enum": []string{
					"pending_payment", "confirmed", "active",
					"completed", "cancelled", "payment_failed", "overdue",
				},
			},
			"original_amount": bson.M{"bsonType": "long", "minimum": 0},
			"discount_amount": bson.M{"bsonType": "long", "minimum": 0},
			"taxes_and_fees":  bson.M{"bsonType": "long", "minimum": 0},
			"final_amount":    bson.M{"bsonType": "long", "minimum": 0},
			"overtime_charge": bson.M{"bsonType": "long", "minimum": 0},
			"currency":        bson.M{"bsonType": "string", "minLength": 3, "maxLength": 3},
		},
	},
}

var PromotionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"code", "discount_type", "discount_value", "valid_from", "valid_till", "max_usage_count"},
		"properties": bson.M{
			"code":          bson.M{"bsonType": "string", "minLength": 3, "maxLength": 32},
			"discount_type": bson.M{"enum": []string{"percentage", "fixedAmount"}},
			"discount_value": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},
			"usage_count":     bson.M{"bsonType": "long", "minimum": 0},
			"max_usage_count": bson.M{"bsonType": "long", "minimum": 1},
			"eligibility": bson.M{
				"enum": []string{
					"allUsers", "firstRideOnly",
					"specificAssetCategories", "specificUsers",
				},
			},
		},
	},
}

var OutboxValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"event_type", "booking_id", "user_id", "created_at"},
		"properties": bson.M{
			"event_type": bson.M{"bsonType": "string", "minLength": 1},
			"booking_id": bson.M{"bsonType": "string", "minLength": 1},
			"attempts":   bson.M{"bsonType": "int", "minimum": 0},
		},
	},
}
