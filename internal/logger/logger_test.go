package logger

import (
	"context"
	"testing"
	"time"

	"go-payroll/internal/config"
	"go-payroll/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDBCore_PersistsCorrelationFields(t *testing.T) {
	store := database.NewMemoryStore()
	cfg := &config.Config{AppId: "test"}
	base, observed := observer.New(zapcore.InfoLevel)

	log := zap.New(NewDBCore(base, NewDBLogWriter(store, cfg))).With(zap.String("actor", "u-1"))
	log.Info("rollback completed", zap.String("operation_id", "op-1"))

	assert.Equal(t, 1, observed.Len(), "the wrapped core still receives the entry")

	var docs []bson.M
	require.Eventually(t, func() bool {
		var err error
		docs, err = store.Find(context.Background(), logCollection, bson.M{"operation_id": "op-1"})
		return err == nil && len(docs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "rollback completed", docs[0]["message"])
	assert.Equal(t, "u-1", docs[0]["actor"])
	assert.EqualValues(t, 20, docs[0]["log_level_id"])
}

func TestMapLevelToInt(t *testing.T) {
	assert.Equal(t, 10, mapLevelToInt(zapcore.DebugLevel))
	assert.Equal(t, 40, mapLevelToInt(zapcore.ErrorLevel))
	assert.Equal(t, 20, mapLevelToInt(zapcore.DPanicLevel))
}
