package outbox

// Event is the envelope written to the outbox table inside the same
// transaction as the domain change it announces. The Kafka topic equals
// EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
