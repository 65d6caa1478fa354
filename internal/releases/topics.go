package releases

const (
	TopicMutations = "release.mutations"
)

// Partition key = release_id, so all events for one release keep their order.
func PartitionKey(releaseID string) []byte { return []byte(releaseID) }
