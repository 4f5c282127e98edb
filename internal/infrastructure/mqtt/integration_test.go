//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/almue/almue-core/internal/infrastructure/config"
)

// These tests need a broker at 127.0.0.1:1883.
//
//	go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_PublishSubscribe(t *testing.T) {
	client, err := Connect(integrationConfig("almue-int-pubsub"), Options{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	received := make(chan string, 1)
	topic := "almue/int/shutter/Ground/Kitchen"
	if err := client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.Publish(topic, []byte(`{"action":"open"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != `{"action":"open"}` {
			t.Errorf("payload = %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig("almue-int-track"), Options{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := []string{"almue/int/a", "almue/int/b", "almue/int/c"}
	for _, topic := range topics {
		if err := client.Subscribe(topic, 0, func(string, []byte) error { return nil }); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}
	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Error("HasSubscription() = true after Unsubscribe")
	}
}

func TestIntegration_RetainedStatus(t *testing.T) {
	const statusTopic = "almue/int/core/status"

	core, err := Connect(integrationConfig("almue-int-core"), Options{StatusTopic: statusTopic})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer core.Close()

	observer, err := Connect(integrationConfig("almue-int-observer"), Options{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer observer.Close()

	var mu sync.Mutex
	var statuses []string
	done := make(chan struct{}, 1)
	if err := observer.Subscribe(statusTopic, 1, func(_ string, payload []byte) error {
		mu.Lock()
		statuses = append(statuses, string(payload))
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("retained status not received")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) == 0 {
		t.Fatal("no status received")
	}
}
