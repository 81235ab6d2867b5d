package builtin

import (
	"github.com/smilemakc/mbflow/internal/application/filestorage"
	"github.com/smilemakc/mbflow/pkg/executor"
)

// RegisterBuiltins registers the built-in executors that need no external
// dependencies: http, transform, llm, function_call, telegram, conditional,
// merge, json_query, web_scrape, web_read, python_execute, terminal.
func RegisterBuiltins(manager executor.Manager) error {
	executors := map[string]executor.Executor{
		"http":           NewHTTPExecutor(),
		"transform":      NewTransformExecutor(),
		"llm":            NewLLMExecutor(),
		"function_call":  NewFunctionCallExecutor(),
		"telegram":       NewTelegramExecutor(),
		"conditional":    NewConditionalExecutor(),
		"merge":          NewMergeExecutor(),
		"json_query":     NewJSONQueryExecutor(),
		"web_scrape":     NewWebScrapeExecutor(),
		"web_read":       NewWebReadExecutor(),
		"python_execute": NewPythonExecuteExecutor(""),
		"terminal":       NewTerminalExecutor(""),
	}

	for name, exec := range executors {
		if err := manager.Register(name, exec); err != nil {
			return err
		}
	}

	return nil
}

// RegisterAdapters registers the value-conversion executors that need no
// external dependencies: base64 <-> bytes, JSON string <-> object, RSS feed
// parsing, and the Google Drive / Telegram adapters that carry their own
// client configuration inline rather than through a shared manager.
func RegisterAdapters(manager executor.Manager) error {
	executors := map[string]executor.Executor{
		"base64_to_bytes":   NewBase64ToBytesExecutor(),
		"bytes_to_base64":   NewBytesToBase64Executor(),
		"string_to_json":    NewStringToJsonExecutor(),
		"json_to_string":    NewJsonToStringExecutor(),
		"google_drive":      NewGoogleDriveExecutor(),
		"rss_parser":        NewRSSParserExecutor(),
		"telegram_download": NewTelegramDownloadExecutor(),
		"telegram_parse":    NewTelegramParseExecutor(),
		"telegram_callback": NewTelegramCallbackExecutor(),
	}

	for name, exec := range executors {
		if err := manager.Register(name, exec); err != nil {
			return err
		}
	}

	return nil
}

// RegisterFileStorage registers the file_storage executor, which reads and
// writes named blobs through manager.
func RegisterFileStorage(manager executor.Manager, storage filestorage.Manager) error {
	return manager.Register("file_storage", NewFileStorageExecutor(storage))
}

// RegisterFileAdapters registers the executors that move data between the
// in-memory byte pipeline and the file storage backend: file_to_bytes reads a
// stored file into node output, bytes_to_file persists node output as a
// stored file.
func RegisterFileAdapters(manager executor.Manager, storage filestorage.Manager) error {
	executors := map[string]executor.Executor{
		"file_to_bytes": NewFileToBytesExecutor(storage),
		"bytes_to_file": NewBytesToFileExecutor(storage),
	}

	for name, exec := range executors {
		if err := manager.Register(name, exec); err != nil {
			return err
		}
	}

	return nil
}

// MustRegisterBuiltins registers all built-in executors and panics on error.
// This is a convenience function for initialization code.
func MustRegisterBuiltins(manager executor.Manager) {
	if err := RegisterBuiltins(manager); err != nil {
		panic("failed to register built-in executors: " + err.Error())
	}
}
