package logging

import "log/slog"

func RequestID[T ~string](id T) slog.Attr {
	return slog.String("request_id", string(id))
}

func FlowName[T ~string](name T) slog.Attr {
	return slog.String("flow", string(name))
}

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func Step[T ~string](name T) slog.Attr {
	return slog.String("step", string(name))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
