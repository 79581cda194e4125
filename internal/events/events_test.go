package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/permitflow/internal/permit"
)

// --- fakes ---

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subj)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *fakeConn) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drained = true
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Classified
	err    error
	block  chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, e Classified) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) EventOutcome(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[outcome]++
}

func (o *countingObserver) get(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[outcome]
}

func sampleEvent(id string) Classified {
	return Classified{
		QuestionnaireID:   id,
		ProjectID:         "p1",
		PermitRequirement: permit.OTCReview,
		Created:           true,
		OccurredAt:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

// --- NATS publisher ---

func TestSubject(t *testing.T) {
	if got := Subject(""); got != "permitflow.questionnaire.classified" {
		t.Errorf("Subject(\"\") = %q", got)
	}
	if got := Subject("city"); got != "city.questionnaire.classified" {
		t.Errorf("Subject(city) = %q", got)
	}
}

func TestNATSPublisher_PublishesJSON(t *testing.T) {
	conn := &fakeConn{}
	p := &NATSPublisher{conn: conn, subject: Subject("test")}

	if err := p.Publish(context.Background(), sampleEvent("q1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(conn.subjects) != 1 || conn.subjects[0] != "test.questionnaire.classified" {
		t.Fatalf("subjects = %v", conn.subjects)
	}

	var got map[string]any
	if err := json.Unmarshal(conn.payloads[0], &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got["questionnaireId"] != "q1" || got["permitRequirement"] != "otc_review" || got["created"] != true {
		t.Errorf("unexpected payload: %v", got)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !conn.drained {
		t.Error("Close should drain the connection")
	}
}

func TestNATSPublisher_PropagatesErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("no responders")}
	p := &NATSPublisher{conn: conn, subject: Subject("")}

	if err := p.Publish(context.Background(), sampleEvent("q1")); err == nil {
		t.Fatal("expected error from connection")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&NATSPublisher{conn: &fakeConn{}, subject: "x"}).Publish(ctx, sampleEvent("q1")); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// --- dispatcher ---

func TestDispatcher_PublishesQueuedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	obs := &countingObserver{}
	d := NewDispatcher(pub, 8, obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	for _, id := range []string{"q1", "q2", "q3"} {
		if !d.Notify(sampleEvent(id)) {
			t.Fatalf("Notify(%s) dropped", id)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if pub.count() != 3 {
		t.Fatalf("published %d events, want 3", pub.count())
	}
	if obs.get(OutcomePublished) != 3 {
		t.Errorf("published outcome = %d, want 3", obs.get(OutcomePublished))
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	obs := &countingObserver{}
	d := NewDispatcher(pub, 1, obs)

	if !d.Notify(sampleEvent("q1")) {
		t.Fatal("first event should be queued")
	}
	if d.Notify(sampleEvent("q2")) {
		t.Fatal("second event should be dropped with a full queue")
	}
	if obs.get(OutcomeDropped) != 1 {
		t.Errorf("dropped outcome = %d, want 1", obs.get(OutcomeDropped))
	}
}

func TestDispatcher_FlushesOnShutdown(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 4, nil)

	d.Notify(sampleEvent("q1"))
	d.Notify(sampleEvent("q2"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	if pub.count() != 2 {
		t.Errorf("published %d events after shutdown, want 2", pub.count())
	}
}

func TestDispatcher_CountsFailures(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	obs := &countingObserver{}
	d := NewDispatcher(pub, 4, obs)

	d.Notify(sampleEvent("q1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	if obs.get(OutcomeFailed) != 1 {
		t.Errorf("failed outcome = %d, want 1", obs.get(OutcomeFailed))
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), sampleEvent("q1")); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
