package ingestion

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"conveyor/internal/envelope"
	"conveyor/internal/logging"
	"conveyor/internal/routing"
	"conveyor/internal/services"
	"conveyor/internal/stage"
	"conveyor/internal/telemetry"
)

// ReasonIngested marks envelopes whose referenced object was transformed and
// stored.
const ReasonIngested = "Object ingested"

// Transform converts a fetched object into its stored result.
type Transform func(input []byte) ([]byte, error)

// UppercaseTransform is the default transform: Unicode-aware uppercasing of
// the object's text.
func UppercaseTransform(input []byte) ([]byte, error) {
	upper := cases.Upper(language.Und)
	return []byte(upper.String(string(input))), nil
}

// ObjectStore is the slice of the object store the ingestion stage needs.
type ObjectStore interface {
	Get(url string) ([]byte, error)
	Put(container, key string, body []byte, overwrite bool) (string, error)
	EnsureContainer(container string) error
}

// Stage consumes storage-reference events, fetches the referenced object,
// applies a transform, and stores the result under a fresh key.
type Stage struct {
	store     ObjectStore
	sink      *telemetry.Sink
	queue     string
	container string
	transform Transform
	logger    *slog.Logger
}

// New constructs the ingestion stage consuming from queueName and writing
// results into the named container. A nil transform defaults to
// UppercaseTransform.
func New(store ObjectStore, sink *telemetry.Sink, queueName, container string, transform Transform, logger *slog.Logger) *Stage {
	if transform == nil {
		transform = UppercaseTransform
	}
	return &Stage{
		store:     store,
		sink:      sink,
		queue:     queueName,
		container: container,
		transform: transform,
		logger:    logging.NewComponentLogger(logger, "ingestion"),
	}
}

func (s *Stage) Name() string { return "ingestion" }

func (s *Stage) Queue() string { return s.queue }

// Handle processes one storage-reference event. Events without a usable URL
// are errors: the delivery is redelivered until the attempt limit parks it
// for an operator to inspect.
func (s *Stage) Handle(ctx context.Context, env envelope.Envelope) (routing.Outcome, error) {
	log := logging.WithContext(ctx, s.logger)

	url, ok, err := env.StorageURL()
	if err != nil {
		return routing.Outcome{}, err
	}
	if !ok {
		log.Error("ingestion event carries no object URL")
		return routing.Outcome{}, services.Wrap(services.ErrPayload, "ingestion", "decode", "event has no object URL", nil)
	}

	input, err := s.store.Get(url)
	if err != nil {
		return routing.Outcome{}, services.Wrap(services.ErrTransient, "ingestion", "fetch", "fetch source object", err)
	}

	output, err := s.transform(input)
	if err != nil {
		return routing.Outcome{}, services.Wrap(services.ErrTransient, "ingestion", "transform", "apply transform", err)
	}

	key := uuid.NewString() + ".txt"
	resultURL, err := s.store.Put(s.container, key, output, false)
	if err != nil {
		return routing.Outcome{}, services.Wrap(services.ErrTransient, "ingestion", "store", "store result object", err)
	}

	log.Info("object ingested",
		logging.String("source_url", url),
		logging.String("result_url", resultURL))
	s.sink.Event(ctx, "object_ingested",
		logging.String("source_url", url),
		logging.String("result_url", resultURL))

	return routing.Outcome{
		Class:  routing.ClassSuccess,
		Reason: ReasonIngested,
	}, nil
}

// HealthCheck reports whether the results container is writable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.store.EnsureContainer(s.container); err != nil {
		return stage.Unhealthy(s.Name(), "object container unavailable: "+err.Error())
	}
	return stage.Healthy(s.Name())
}
