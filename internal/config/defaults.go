package config

const (
	defaultDataDir        = "~/.local/share/conveyor/data"
	defaultLogDir         = "~/.local/share/conveyor/logs"
	defaultObjectStoreDir = "~/.local/share/conveyor/objects"

	defaultIntakeQueue     = "incoming-orders"
	defaultProcessingQueue = "processing"
	defaultFailedQueue     = "failed-orders"
	defaultCompletedQueue  = "order-completed"
	defaultIngestionQueue  = "ingestion-events"

	defaultVisibilityTimeout   = 120
	defaultMaxDeliveryAttempts = 5

	defaultValidationSLASeconds = 30
	defaultCompletionSLASeconds = 10
	defaultOrdersContainer      = "processed-orders"
	defaultResultsContainer     = "ingestion-results"

	defaultQueuePollInterval  = 1
	defaultErrorRetryInterval = 5
	defaultReclaimInterval    = 15

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			LogDir:         defaultLogDir,
			ObjectStoreDir: defaultObjectStoreDir,
		},
		Queues: Queues{
			Intake:     defaultIntakeQueue,
			Processing: defaultProcessingQueue,
			Failed:     defaultFailedQueue,
			Completed:  defaultCompletedQueue,
			Ingestion:  defaultIngestionQueue,
		},
		Broker: Broker{
			VisibilityTimeout:   defaultVisibilityTimeout,
			MaxDeliveryAttempts: defaultMaxDeliveryAttempts,
		},
		Stages: Stages{
			ValidationWorkers:    2,
			ProcessingWorkers:    2,
			CompletionWorkers:    1,
			IngestionWorkers:     2,
			ValidationSLASeconds: defaultValidationSLASeconds,
			CompletionSLASeconds: defaultCompletionSLASeconds,
			OrdersContainer:      defaultOrdersContainer,
			ResultsContainer:     defaultResultsContainer,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			ReclaimInterval:    defaultReclaimInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			SLABreaches:    true,
			StageFailures:  true,
			DeadLetters:    true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
