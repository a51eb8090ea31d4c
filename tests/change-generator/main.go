package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

// Emits synthetic change-feed events into the orders topic so a locally
// running sync service has something to fold.

type GeoPoint struct {
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

type Order struct {
	ID                 string    `json:"id"`
	CustomerID         string    `json:"customer_id"`
	ExecutorID         string    `json:"executor_id,omitempty"`
	ServiceType        string    `json:"service_type"`
	Date               string    `json:"date"`
	Time               string    `json:"time"`
	Status             string    `json:"status"`
	TotalPrice         float64   `json:"total_price"`
	Details            string    `json:"details,omitempty"`
	AllowOpenSelection bool      `json:"allow_open_selection"`
	LocationFrom       *GeoPoint `json:"location_from,omitempty"`
	LocationTo         *GeoPoint `json:"location_to,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ChangeEvent struct {
	Type   string `json:"type"`
	Table  string `json:"table"`
	Record Order  `json:"record"`
}

func randomString(n int) string {
	letters := []rune("abcdefghijklmnopqrstuvwxyz0123456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

var statuses = []string{"pending", "open", "confirmed", "completed", "cancelled"}
var types = []string{"INSERT", "UPDATE", "UPDATE", "UPDATE", "DELETE"}

func generateRandomEvent(customerID string) ChangeEvent {
	order := Order{
		ID:          randomString(16),
		CustomerID:  customerID,
		ServiceType: "transfer",
		Date:        time.Now().Format("2006-01-02"),
		Time:        fmt.Sprintf("%02d:00", rand.Intn(24)),
		Status:      statuses[rand.Intn(len(statuses))],
		TotalPrice:  float64(rand.Intn(5000) + 500),
		Details:     "details " + randomString(8),
		LocationFrom: &GeoPoint{
			Address:   fmt.Sprintf("Street %d", rand.Intn(100)),
			Latitude:  55 + rand.Float64(),
			Longitude: 37 + rand.Float64(),
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if order.Status != "open" {
		order.ExecutorID = "executor_" + randomString(5)
	}
	return ChangeEvent{
		Type:   types[rand.Intn(len(types))],
		Table:  "orders",
		Record: order,
	}
}

func main() {
	addr := kafka.TCP("localhost:9092")

	writer := &kafka.Writer{
		Addr:  addr,
		Topic: "orders-changes",
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Half the events target a fixed customer so an instance started with
	// ACTOR_ID=customer_test actually sees them pass the relevance filter.
	ticker := time.NewTicker(2 * time.Second)
	for {
		select {
		case <-ticker.C:
			customerID := "customer_" + randomString(5)
			if rand.Intn(2) == 0 {
				customerID = "customer_test"
			}
			event := generateRandomEvent(customerID)
			data, _ := json.Marshal(event)
			writer.WriteMessages(context.Background(), kafka.Message{Value: data})
			log.Println("change event generated", event.Type, event.Record.ID)
		case <-ctx.Done():
			return
		}
	}
}
