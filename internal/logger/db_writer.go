package logger

import (
	"context"
	"fmt"
	"time"

	"go-payroll/internal/config"
	"go-payroll/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap/zapcore"
)

const logCollection = "app_logs"

// LogEntry holds the data passed from Zap to our worker
type LogEntry struct {
	Level       zapcore.Level
	Message     string
	IpAddress   string
	OperationID string
	Actor       string
	Caller      string // Function name
}

// LogRecord is the persisted shape of a LogEntry.
type LogRecord struct {
	AppID        string    `bson:"app_id" json:"app_id"`
	Message      string    `bson:"message" json:"message"`
	IpAddress    string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	OperationID  string    `bson:"operation_id,omitempty" json:"operation_id,omitempty"`
	Actor        string    `bson:"actor,omitempty" json:"actor,omitempty"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}

// DBLogWriter handles the async writing
type DBLogWriter struct {
	store   database.DocumentStore
	logChan chan LogEntry
	appId   string
}

// NewDBLogWriter initializes the worker
func NewDBLogWriter(store database.DocumentStore, cfg *config.Config) *DBLogWriter {
	writer := &DBLogWriter{
		store:   store,
		logChan: make(chan LogEntry, 1000), // Buffer 1000 logs
		appId:   cfg.AppId,
	}

	// Start the background worker immediately
	go writer.processLogs()

	return writer
}

// AddLog is called by our Zap hook
func (w *DBLogWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop log to prevent blocking the API
		fmt.Println("DB Log Channel Full! Dropping log:", entry.Message)
	}
}

func (w *DBLogWriter) processLogs() {
	for entry := range w.logChan {
		doc, err := database.ToDocument(LogRecord{
			AppID:        w.appId,
			Message:      entry.Message,
			IpAddress:    entry.IpAddress,
			OperationID:  entry.OperationID,
			Actor:        entry.Actor,
			Caller:       entry.Caller,
			LogLevelId:   mapLevelToInt(entry.Level),
			CreatedOnUtc: time.Now().UTC(),
		})
		if err != nil {
			continue
		}

		// Insert into DB (safely ignore errors to keep app running)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = w.store.InsertMany(ctx, logCollection, []bson.M{doc})
		cancel()
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
