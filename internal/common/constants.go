package common

// Artifact and dataset defaults
const (
	DefaultModelDir        = "trained model final"
	DefaultLegacyModelPath = "best_xgb_model.json"
	DefaultDatasetPath     = "iot_device_test_augmented_10k.csv"
	DefaultLabelColumn     = "device_category"
	LabelEncoderFile       = "label_encoder.json"
	ArtifactExtension      = ".json"
	CatalogFile            = "iot-catalog.db"
)

// Input policies for feature maps coming from the HTTP boundary
const (
	InputPolicyTolerant = "tolerant"
	InputPolicyStrict   = "strict"
)

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvModelDir        = "MODEL_DIR"
	EnvLegacyModelPath = "LEGACY_MODEL_PATH"
	EnvDatasetPath     = "DATASET_PATH"
	EnvLabelColumn     = "LABEL_COLUMN"
	EnvPort            = "PORT"
	EnvMetricsPort     = "METRICS_PORT"
	EnvDataPath        = "DATA_PATH"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFile         = "LOG_FILE"
	EnvLogMaxSizeMB    = "LOG_MAX_SIZE_MB"
	EnvInputPolicy     = "INPUT_POLICY"
	EnvParallelScoring = "PARALLEL_SCORING"
	EnvCacheSize       = "CACHE_SIZE"
	EnvCacheTTL        = "CACHE_TTL"
	EnvWatchModels     = "WATCH_MODELS"
	EnvRequestTimeout  = "REQUEST_TIMEOUT"
)

// Model artifact kinds
const (
	KindRandomForest  = "random_forest"
	KindSoftmaxLinear = "softmax_linear"
	KindXGBoost       = "xgboost"
)

// Load strategies recorded in load reports
const (
	StrategyEnsemble = "ensemble"
	StrategyLegacy   = "legacy_booster"
)
