package routing_test

import (
	"context"
	"errors"
	"testing"

	"conveyor/internal/envelope"
	"conveyor/internal/logging"
	"conveyor/internal/queue"
	"conveyor/internal/routing"
)

type stubBroker struct {
	sent        []sentMessage
	sendErr     error
	acked       int
	abandoned   []string
	abandonDead bool
}

type sentMessage struct {
	queue    string
	envelope envelope.Envelope
}

func (b *stubBroker) Send(_ context.Context, queueName string, env envelope.Envelope) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, sentMessage{queue: queueName, envelope: env})
	return nil
}

func (b *stubBroker) Acknowledge(context.Context, *queue.Delivery) error {
	b.acked++
	return nil
}

func (b *stubBroker) Abandon(_ context.Context, _ *queue.Delivery, reason string) (bool, error) {
	b.abandoned = append(b.abandoned, reason)
	return b.abandonDead, nil
}

func testRoutes() routing.Routes {
	return routing.Routes{
		routing.ClassSuccess:              "processing",
		routing.ClassValidationFailure:    "failed-orders",
		routing.ClassNotFound:             "failed-orders",
		routing.ClassDeserializationError: "failed-orders",
	}
}

func delivery() *queue.Delivery {
	return &queue.Delivery{
		Envelope: envelope.New([]byte(`{"orderId":"ord-1"}`)),
		Queue:    "incoming-orders",
		Attempts: 1,
	}
}

func TestSettleForwardsThenAcks(t *testing.T) {
	broker := &stubBroker{}
	router := routing.New(broker, testRoutes(), logging.NewNop())

	d := delivery()
	outcome := routing.Outcome{Class: routing.ClassSuccess, Reason: "Order validation successful"}
	disposition, err := router.Settle(context.Background(), d, outcome, nil)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if disposition != routing.DispositionAcked {
		t.Fatalf("expected acked, got %q", disposition)
	}
	if len(broker.sent) != 1 || broker.sent[0].queue != "processing" {
		t.Fatalf("expected forward to processing, got %+v", broker.sent)
	}
	if broker.sent[0].envelope.ID != d.Envelope.ID {
		t.Fatal("forwarded envelope must keep the delivery's ID")
	}
	if broker.sent[0].envelope.Subject != "Order validation successful" {
		t.Fatalf("unexpected subject %q", broker.sent[0].envelope.Subject)
	}
	if broker.acked != 1 {
		t.Fatalf("expected one ack, got %d", broker.acked)
	}
}

func TestSettleDefaultsBodyToOriginal(t *testing.T) {
	broker := &stubBroker{}
	router := routing.New(broker, testRoutes(), logging.NewNop())

	d := delivery()
	outcome := routing.Outcome{Class: routing.ClassValidationFailure, Reason: "Order validation failed"}
	if _, err := router.Settle(context.Background(), d, outcome, nil); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if string(broker.sent[0].envelope.Body) != string(d.Envelope.Body) {
		t.Fatal("expected original body to be forwarded when outcome has none")
	}
}

func TestSettleHandlerErrorAbandons(t *testing.T) {
	broker := &stubBroker{}
	router := routing.New(broker, testRoutes(), logging.NewNop())

	disposition, err := router.Settle(context.Background(), delivery(), routing.Outcome{}, errors.New("docstore down"))
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if disposition != routing.DispositionAbandoned {
		t.Fatalf("expected abandoned, got %q", disposition)
	}
	if len(broker.sent) != 0 || broker.acked != 0 {
		t.Fatal("handler errors must not forward or ack")
	}
	if len(broker.abandoned) != 1 || broker.abandoned[0] != "docstore down" {
		t.Fatalf("expected abandon reason, got %v", broker.abandoned)
	}
}

func TestSettleHandlerErrorDeadLetters(t *testing.T) {
	broker := &stubBroker{abandonDead: true}
	router := routing.New(broker, testRoutes(), logging.NewNop())

	disposition, err := router.Settle(context.Background(), delivery(), routing.Outcome{}, errors.New("still down"))
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if disposition != routing.DispositionDeadLettered {
		t.Fatalf("expected dead-lettered, got %q", disposition)
	}
}

func TestSettleForwardFailureAbandons(t *testing.T) {
	broker := &stubBroker{sendErr: errors.New("broker unavailable")}
	router := routing.New(broker, testRoutes(), logging.NewNop())

	outcome := routing.Outcome{Class: routing.ClassSuccess, Reason: "Order validation successful"}
	disposition, err := router.Settle(context.Background(), delivery(), outcome, nil)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if disposition != routing.DispositionAbandoned {
		t.Fatalf("expected abandoned, got %q", disposition)
	}
	if broker.acked != 0 {
		t.Fatal("a failed forward must not acknowledge the delivery")
	}
}

func TestSettleUnroutedClassAcksWithoutForward(t *testing.T) {
	broker := &stubBroker{}
	router := routing.New(broker, routing.Routes{}, logging.NewNop())

	outcome := routing.Outcome{Class: routing.ClassSuccess, Reason: "Order completed"}
	disposition, err := router.Settle(context.Background(), delivery(), outcome, nil)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if disposition != routing.DispositionAcked {
		t.Fatalf("expected acked, got %q", disposition)
	}
	if len(broker.sent) != 0 {
		t.Fatalf("expected no forward, got %+v", broker.sent)
	}
}
