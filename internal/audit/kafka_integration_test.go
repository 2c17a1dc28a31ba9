//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"idsync/pkg/testutil/containers"
)

const testTopic = "idsync.audit.test"

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	sink     *KafkaSink
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink, err := NewKafkaSink(context.Background(), []string{s.redpanda.Broker}, testTopic, logger)
	s.Require().NoError(err)
	s.sink = sink

	// Connecting twice must not trip over the already-created topic.
	again, err := NewKafkaSink(context.Background(), []string{s.redpanda.Broker}, testTopic, logger)
	s.Require().NoError(err)
	s.Require().NoError(again.Close())
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.sink != nil {
		s.Require().NoError(s.sink.Close())
	}
}

func (s *KafkaSinkSuite) TestEmitProducesKeyedRecords() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	events := []Event{
		{
			Timestamp:     time.Now().UTC(),
			Action:        ActionRunStarted,
			TransactionID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
			SyncConfigID:  "a2f9c7be-5f48-4e8d-9f2a-3b1d6c8e0a11",
		},
		{
			Timestamp:     time.Now().UTC(),
			Action:        ActionRunFinished,
			TransactionID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
			Detail:        "processed 3 items",
		},
	}
	for _, event := range events {
		s.Require().NoError(s.sink.Emit(ctx, event))
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) < len(events) {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(fetches.Err())
		records = append(records, fetches.Records()...)
	}
	s.Require().Len(records, len(events))

	for i, record := range records {
		s.Equal(testTopic, record.Topic)
		s.Equal("01ARZ3NDEKTSV4RRFFQ69G5FAV", string(record.Key),
			"records must be keyed by transaction id")

		var got Event
		s.Require().NoError(json.Unmarshal(record.Value, &got))
		s.Equal(events[i].Action, got.Action)
		s.Equal(events[i].Detail, got.Detail)
	}
}
