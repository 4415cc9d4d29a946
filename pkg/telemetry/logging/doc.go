// Package logging builds the process logger from configuration.
//
// Loggers are plain *slog.Logger values with a JSON or text handler. Values
// of attributes whose key names a credential (authorization, password,
// api_key and the like) are replaced before they reach the handler.
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
// Request-scoped fields travel in the context:
//
//	ctx = logging.WithRequestID(ctx, id)
//	logging.FromContext(ctx, logger).Info("forwarding")
package logging
