package kafka

// PartitionInfo is a broker reported partition record. Only its count matters
// to validation; the remaining fields are carried through for display.
type PartitionInfo struct {
	Topic    string   `json:"topic"`
	ID       int      `json:"id"`
	Leader   string   `json:"leader,omitempty"`
	Replicas []string `json:"replicas,omitempty"`
	Isr      []string `json:"isr,omitempty"`
}

type TopicMetadata struct {
	Topic             string `json:"topic"`
	Partitions        int    `json:"partitions"`
	ReplicationFactor int    `json:"replication_factor"`
}

// NewTopicMetadata summarises partitions of topic. The replication factor is
// read from the first partition and is zero if the binding does not report
// replicas.
func NewTopicMetadata(topic string, partitions []PartitionInfo) *TopicMetadata {
	tm := &TopicMetadata{
		Topic:      topic,
		Partitions: len(partitions),
	}
	if len(partitions) > 0 {
		tm.ReplicationFactor = len(partitions[0].Replicas)
	}
	return tm
}
