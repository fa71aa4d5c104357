package persist

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Prune deletes snapshots older than the retention period.
// Pass retentionDays <= 0 to keep everything.
func Prune(ctx context.Context, store *Store, retentionDays int) {
	if retentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result, err := store.db.Collection("snapshots").DeleteMany(ctx, bson.M{
		"created_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		log.Printf("snapshot retention prune error: %v", err)
		return
	}

	if result.DeletedCount > 0 {
		log.Printf("snapshot retention: pruned %d snapshots older than %s",
			result.DeletedCount, cutoff.Format(time.DateOnly))
	}
}
