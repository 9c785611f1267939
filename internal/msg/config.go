package msg

// TopicLifecycle carries drop-copy events for every order lifecycle step.
const TopicLifecycle = "fix.lifecycle"

// Config holds Kafka client settings
type Config struct {
	Brokers  []string
	ClientID string
}

// NewConfig returns a Config, defaulting the client id when empty
func NewConfig(brokers []string, clientID string) Config {
	if clientID == "" {
		clientID = "fix-order-lifecycle"
	}
	return Config{Brokers: brokers, ClientID: clientID}
}
