package resourcewatch

import (
	runtimepkg "github.com/drblury/resourcewatch/internal/runtime"
	ce "github.com/drblury/resourcewatch/internal/runtime/cloudevents"
	"github.com/drblury/resourcewatch/internal/runtime/codec"
	configpkg "github.com/drblury/resourcewatch/internal/runtime/config"
	"github.com/drblury/resourcewatch/internal/runtime/console"
	errspkg "github.com/drblury/resourcewatch/internal/runtime/errors"
	"github.com/drblury/resourcewatch/internal/runtime/grip"
	idspkg "github.com/drblury/resourcewatch/internal/runtime/ids"
	loggingpkg "github.com/drblury/resourcewatch/internal/runtime/logging"
	metadatapkg "github.com/drblury/resourcewatch/internal/runtime/metadata"
	"github.com/drblury/resourcewatch/internal/runtime/sink"
	"github.com/drblury/resourcewatch/internal/runtime/source"
	"github.com/drblury/resourcewatch/internal/runtime/target"
	transportpkg "github.com/drblury/resourcewatch/internal/runtime/transport"
	"github.com/drblury/resourcewatch/internal/runtime/watcher"
	newtransport "github.com/drblury/resourcewatch/transport"
)

type (
	Config               = configpkg.Config
	Service              = runtimepkg.Service
	ServiceDependencies  = runtimepkg.ServiceDependencies
	Transport            = transportpkg.Transport
	TransportFactory     = transportpkg.Factory
	TransportFactoryFunc = transportpkg.FactoryFunc

	// Targets
	Target          = target.Target
	TargetKind      = target.Kind
	TargetHandle    = target.Handle
	HandleConfig    = target.HandleConfig
	Window          = target.Window
	ListenerOptions = target.ListenerOptions

	// Console messages
	RawMessage   = console.RawMessage
	Record       = console.Record
	StackFrame   = console.StackFrame
	Grip         = grip.Grip
	Materializer = grip.Materializer

	// Watching
	Hub                   = source.Hub
	ConsoleMessageWatcher = watcher.ConsoleMessageWatcher
	WatcherDependencies   = watcher.Dependencies
	Resource              = watcher.Resource
	ResourceType          = watcher.ResourceType
	Phase                 = watcher.Phase
	OnAvailable           = watcher.OnAvailable
	DeliveryHooks         = watcher.DeliveryHooks
	DeliveryContext       = watcher.DeliveryContext
	WatcherMetrics        = watcher.Metrics
	MetricsSnapshot       = watcher.MetricsSnapshot

	// Delivery
	Sink            = sink.Sink
	SinkFunc        = sink.SinkFunc
	Batch           = sink.Batch
	MemorySink      = sink.MemorySink
	PublisherSink   = sink.PublisherSink
	PublisherConfig = sink.PublisherConfig
	RetryConfig     = sink.RetryConfig
	DecodedBatch    = sink.Decoded
	Codec           = codec.Codec

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError

	// CloudEvents types
	Event = ce.Event

	// Transport capabilities
	Capabilities = transportpkg.Capabilities

	// Modular transport types
	TransportBuilder  = newtransport.Builder
	TransportConfig   = newtransport.Config
	TransportRegistry = newtransport.Registry
	Replayer          = newtransport.Replayer
)

// Target kinds.
const (
	KindFrame         = target.KindFrame
	KindProcess       = target.KindProcess
	KindWorker        = target.KindWorker
	KindSharedWorker  = target.KindSharedWorker
	KindServiceWorker = target.KindServiceWorker
)

// Batch phases.
const (
	PhaseHistory = watcher.PhaseHistory
	PhaseLive    = watcher.PhaseLive

	ConsoleMessage = watcher.ConsoleMessage
)

var (
	NewService     = runtimepkg.NewService
	DefaultConfig  = configpkg.DefaultConfig
	LoadConfig     = configpkg.Load
	ValidateConfig = configpkg.ValidateConfig

	NewTarget       = target.NewHandle
	NewHub          = source.NewHub
	NewWatcher      = watcher.New
	NewMetrics      = watcher.NewMetrics
	LoggingHooks    = watcher.LoggingHooks
	NewMaterializer = grip.NewRegistryMaterializer

	NewMemorySink    = sink.NewMemorySink
	NewPublisherSink = sink.NewPublisherSink
	DecodeBatch      = sink.Decode

	CodecByName = codec.ByName
	JSONCodec   = codec.JSON
	CBORCodec   = codec.CBOR
	ProtoCodec  = codec.Protobuf

	// CloudEvents helpers
	NewCloudEvent    = ce.New
	GetTargetID      = ce.GetTargetID
	GetPhase         = ce.GetPhase
	GetSequence      = ce.GetSequence
	GetCorrelationID = ce.GetCorrelationID
	GetTraceID       = ce.GetTraceID

	// Transport registry
	GetCapabilities          = newtransport.GetCapabilities
	DefaultTransportFactory  = transportpkg.DefaultFactory
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build
	ErrUnknownTransport      = newtransport.ErrUnknownTransport

	Marshal       = codec.Marshal
	MarshalIndent = codec.MarshalIndent
	Unmarshal     = codec.Unmarshal

	ErrInvalidState      = errspkg.ErrInvalidState
	ErrSessionActive     = errspkg.ErrSessionActive
	ErrTargetRequired    = errspkg.ErrTargetRequired
	ErrHubRequired       = errspkg.ErrHubRequired
	ErrPublisherRequired = errspkg.ErrPublisherRequired
	ErrTopicRequired     = errspkg.ErrTopicRequired
	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrLoggerRequired    = errspkg.ErrLoggerRequired
	ErrTargetNotWatched  = errspkg.ErrTargetNotWatched
	ErrServiceClosed     = errspkg.ErrServiceClosed

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewNopServiceLogger  = loggingpkg.NewNopServiceLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Metadata keys set on every published batch.
const (
	MetadataKeyTargetID      = metadatapkg.KeyTargetID
	MetadataKeyTargetKind    = metadatapkg.KeyTargetKind
	MetadataKeyPhase         = metadatapkg.KeyPhase
	MetadataKeySequence      = metadatapkg.KeySequence
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyContentType   = metadatapkg.KeyContentType
)
