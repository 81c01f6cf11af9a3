package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	r "github.com/fjod/go_cart/shop-api/internal/repository"
	s "github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/rs/zerolog"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"gotest.tools/v3/assert"
)

func setupTestDB(t *testing.T) (r.CartRepository, r.ProductRepository, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := r.ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)
	require.NoError(t, r.RunMigrations(db))

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return r.NewMongoRepository(db), r.NewProductRepository(db), cleanup
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_ClearsCartAfterCheckout(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	carts, products, cleanupDb := setupTestDB(t)
	defer cleanupDb()
	broker, cleanupKafka := setupKafka(t)
	defer cleanupKafka()

	topic := "checkout-completed"
	createTopic(t, broker, topic)

	cartService := s.NewCartService(carts, products)

	product := &domain.Product{Title: "Mug", Price: 10}
	require.NoError(t, products.CreateProduct(ctx, product))
	cart, err := cartService.AddItem(ctx, "123", product.ID.Hex(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, len(cart.Items))
	assert.Equal(t, 20.0, cart.TotalPrice)

	poller := NewPoller(cartService, Config{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: "cart-service-test",
	}, zerolog.Nop())

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	payload, err := json.Marshal(map[string]interface{}{
		"checkout_id":  "chId",
		"user_id":      "123",
		"total_amount": 20,
		"currency":     "usd",
		"completed_at": time.Now(),
	})
	require.NoError(t, err)
	err = w.WriteMessages(ctx, kafkaGo.Message{
		Key:     []byte("chId"),
		Value:   payload,
		Headers: []kafkaGo.Header{{Key: "event_type", Value: []byte("checkout")}},
	})
	require.NoError(t, err)
	w.Close()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	done := make(chan struct{})
	go func() {
		poller.Run(runCtx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		c, err := carts.GetCart(ctx, "123")
		return err == nil && len(c.Items) == 0
	}, 30*time.Second, 500*time.Millisecond)

	c, err := carts.GetCart(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.TotalPrice)

	// shutdown order used by main: stop, wait for Run, then close
	stop()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("poller did not stop")
	}
	poller.Close()
}
