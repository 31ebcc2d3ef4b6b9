package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/worksmart-ai/leadpipe/internal/api"
	"github.com/worksmart-ai/leadpipe/internal/conversation"
	"github.com/worksmart-ai/leadpipe/internal/flow"
	"github.com/worksmart-ai/leadpipe/internal/genai"
	"github.com/worksmart-ai/leadpipe/internal/lockfile"
	"github.com/worksmart-ai/leadpipe/internal/messaging"
	"github.com/worksmart-ai/leadpipe/internal/store"
	"github.com/worksmart-ai/leadpipe/internal/twiliowhatsapp"
	"github.com/worksmart-ai/leadpipe/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for LeadPipe state data
	DefaultStateDir = "/var/lib/leadpipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "leadpipe.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Guard the state directory against a second instance when using
	// file-based storage
	if lock, err := acquireStateLock(flags); err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	} else if lock != nil {
		defer lock.Release()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the lead store
	st, err := openStore(ctx, flags)
	if err != nil {
		slog.Error("Failed to open lead store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close lead store", "error", err)
		}
	}()

	// Build the pause registry
	pauses, err := buildPauseRegistry(ctx, flags)
	if err != nil {
		slog.Error("Failed to build pause registry", "error", err)
		os.Exit(1)
	}

	// Build module options
	genaiOpts := buildGenAIOptions(flags)
	messengerOpts := buildMessengerOptions(flags)
	flowOpts := buildFlowOptions(flags)
	apiOpts := buildAPIOptions(flags)

	twilioSvc, err := buildTwilioService(flags)
	if err != nil {
		slog.Error("Failed to build Twilio service", "error", err)
		os.Exit(1)
	}

	// Start the service
	slog.Info("Bootstrapping LeadPipe with configured modules")
	slog.Debug("Module options counts", "genai", len(genaiOpts), "messenger", len(messengerOpts), "flow", len(flowOpts), "api", len(apiOpts))
	if err := api.Run(ctx, st, pauses, genaiOpts, messengerOpts, flowOpts, apiOpts, twilioSvc); err != nil {
		slog.Error("LeadPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LeadPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL     string
	StateDir        string
	OpenAIKey       string
	OpenAIModel     string
	APIAddr         string
	VerifyToken     string
	PageAccessToken string
	RedisURL        string
	PauseWindow     time.Duration
	SheetID         string
	SheetName       string
	GoogleCredsPath string
	TwilioEnabled   bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	openaiKey   *string
	openaiModel *string
	apiAddr     *string
	verifyToken *string
	pageToken   *string
	redisURL    *string
	pauseWindow *time.Duration
	sheetID     *string
	sheetName   *string
	googleCreds *string
	twilio      *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("LEADPIPE_STATE_DIR"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		APIAddr:         os.Getenv("API_ADDR"),
		VerifyToken:     os.Getenv("VERIFY_TOKEN"),
		PageAccessToken: os.Getenv("PAGE_ACCESS_TOKEN"),
		RedisURL:        os.Getenv("REDIS_URL"),
		PauseWindow:     util.ParseDurationEnv("PAUSE_WINDOW", conversation.DefaultPauseWindow),
		SheetID:         os.Getenv("SHEET_ID"),
		SheetName:       os.Getenv("SHEET_NAME"),
		GoogleCredsPath: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		TwilioEnabled:   util.ParseBoolEnv("TWILIO_ENABLED", false),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No LEADPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"LEADPIPE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"VERIFY_TOKEN_SET", config.VerifyToken != "",
		"PAGE_ACCESS_TOKEN_SET", config.PageAccessToken != "",
		"REDIS_URL_SET", config.RedisURL != "",
		"PAUSE_WINDOW", config.PauseWindow,
		"SHEET_ID_SET", config.SheetID != "",
		"TWILIO_ENABLED", config.TwilioEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for LeadPipe data (overrides $LEADPIPE_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the lead store (overrides $DATABASE_URL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "OpenAI model name (overrides $OPENAI_MODEL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		verifyToken: flag.String("verify-token", config.VerifyToken, "Messenger webhook verification token (overrides $VERIFY_TOKEN)"),
		pageToken:   flag.String("page-token", config.PageAccessToken, "Facebook page access token (overrides $PAGE_ACCESS_TOKEN)"),
		redisURL:    flag.String("redis-url", config.RedisURL, "Redis URL for the shared pause registry (overrides $REDIS_URL)"),
		pauseWindow: flag.Duration("pause-window", config.PauseWindow, "operator takeover pause window (overrides $PAUSE_WINDOW)"),
		sheetID:     flag.String("sheet-id", config.SheetID, "Google Sheets spreadsheet ID for the lead store (overrides $SHEET_ID)"),
		sheetName:   flag.String("sheet-name", config.SheetName, "Google Sheets tab name (overrides $SHEET_NAME)"),
		googleCreds: flag.String("google-credentials", config.GoogleCredsPath, "Google service account key file (overrides $GOOGLE_CREDENTIALS_FILE)"),
		twilio:      flag.Bool("twilio", config.TwilioEnabled, "enable the Twilio WhatsApp channel (overrides $TWILIO_ENABLED)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"sheetID_set", *flags.sheetID != "",
		"twilio", *flags.twilio)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if *flags.sheetID != "" {
		return nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// acquireStateLock takes the exclusive state directory lock for SQLite
// deployments. Sheets and PostgreSQL backends keep no local state, so
// multiple instances are allowed and nil is returned.
func acquireStateLock(flags Flags) (*lockfile.Lock, error) {
	if *flags.sheetID != "" || store.DetectDSNType(*flags.dbDSN) != "sqlite3" {
		return nil, nil
	}
	return lockfile.AcquireLock(filepath.Dir(*flags.dbDSN))
}

// openStore selects and opens the lead store backend: Google Sheets when a
// spreadsheet ID is configured, otherwise SQL by DSN type.
func openStore(ctx context.Context, flags Flags) (store.Store, error) {
	if *flags.sheetID != "" {
		creds, err := os.ReadFile(*flags.googleCreds)
		if err != nil {
			return nil, err
		}
		slog.Debug("Configuring Google Sheets store", "sheetID_set", true, "sheetName", *flags.sheetName)
		return store.NewSheetsStore(ctx,
			store.WithSpreadsheetID(*flags.sheetID),
			store.WithSheetName(*flags.sheetName),
			store.WithCredentialsJSON(creds))
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
}

// buildPauseRegistry uses Redis when configured so pause windows survive
// restarts and are shared across replicas.
func buildPauseRegistry(ctx context.Context, flags Flags) (conversation.PauseStore, error) {
	if *flags.redisURL != "" {
		slog.Debug("Configuring Redis pause registry")
		return conversation.NewRedisPauseRegistry(ctx, *flags.redisURL)
	}
	slog.Debug("Configuring in-memory pause registry")
	return conversation.NewMemoryPauseRegistry(), nil
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildMessengerOptions constructs Messenger delivery options
func buildMessengerOptions(flags Flags) []messaging.MessengerOption {
	var msgOpts []messaging.MessengerOption
	if *flags.pageToken != "" {
		msgOpts = append(msgOpts, messaging.WithPageAccessToken(*flags.pageToken))
	}
	return msgOpts
}

// buildFlowOptions constructs conversation flow options
func buildFlowOptions(flags Flags) []flow.Option {
	var flowOpts []flow.Option
	if *flags.pauseWindow > 0 {
		flowOpts = append(flowOpts, flow.WithPauseWindow(*flags.pauseWindow))
	}
	return flowOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.verifyToken != "" {
		apiOpts = append(apiOpts, api.WithVerifyToken(*flags.verifyToken))
	}
	return apiOpts
}

// buildTwilioService creates the optional Twilio WhatsApp channel. Credentials
// come from the TWILIO_* environment variables.
func buildTwilioService(flags Flags) (*messaging.TwilioService, error) {
	if !*flags.twilio {
		return nil, nil
	}
	client, err := twiliowhatsapp.NewClient()
	if err != nil {
		return nil, err
	}
	return messaging.NewTwilioService(client), nil
}
