package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/heimdex/heimdex-studio/internal/db"
)

func sampleEvent() Event {
	return Event{
		Type:       TypeTrimmed,
		VideoID:    42,
		Status:     "trimmed",
		Path:       "/media/trimmed-1.mp4",
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestKafka_PublishEncodesEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got Event
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Type != TypeTrimmed || got.VideoID != 42 || got.Status != "trimmed" {
			return fmt.Errorf("unexpected event %+v", got)
		}
		return nil
	})

	k := NewKafkaWithProducer(producer, "")
	if k.topic != DefaultTopic {
		t.Errorf("topic = %q, want %q", k.topic, DefaultTopic)
	}
	if err := k.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := k.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestKafka_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	k := NewKafkaWithProducer(producer, "custom")
	err := k.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("Publish() error = %v, want ErrOutOfBrokers", err)
	}
	k.Close()
}

func TestNewKafka_NoBrokers(t *testing.T) {
	if _, err := NewKafka(nil, "t"); err == nil {
		t.Error("NewKafka(nil) expected error")
	}
}

type recordingPublisher struct {
	events []Event
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("down")}
	m := Multi{ok, failing}

	err := m.Publish(context.Background(), sampleEvent())
	if err == nil {
		t.Error("Multi.Publish() should surface the failing publisher's error")
	}
	if len(ok.events) != 1 || len(failing.events) != 1 {
		t.Errorf("every publisher should receive the event: %d, %d", len(ok.events), len(failing.events))
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !ok.closed || !failing.closed {
		t.Error("Close() should close every publisher")
	}
}

func TestJournal_PublishAndList(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer database.Close()

	j := NewJournal(database.Conn())
	ctx := context.Background()

	first := sampleEvent()
	second := Event{Type: TypeDeleted, VideoID: 42, OccurredAt: first.OccurredAt.Add(time.Second)}
	other := Event{Type: TypeUploaded, VideoID: 7, Status: "uploaded", OccurredAt: first.OccurredAt}

	for _, e := range []Event{first, other, second} {
		if err := j.Publish(ctx, e); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	got, err := j.List(ctx, 42)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d events, want 2", len(got))
	}
	if got[0].Type != first.Type || got[0].Status != first.Status || got[0].Path != first.Path || !got[0].OccurredAt.Equal(first.OccurredAt) {
		t.Errorf("first event = %+v, want %+v", got[0], first)
	}
	if got[1].Type != TypeDeleted || got[1].Status != "" || got[1].Path != "" {
		t.Errorf("second event = %+v", got[1])
	}

	none, err := j.List(ctx, 999)
	if err != nil || len(none) != 0 {
		t.Errorf("List(999) = %v, %v; want empty", none, err)
	}
}
