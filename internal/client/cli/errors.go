package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iudanet/taskauth/internal/client/api"
	"github.com/iudanet/taskauth/internal/client/auth"
)

// formatError делает ответ сервера читаемым: сообщение и ошибки по полям
func formatError(action string, err error) error {
	if errors.Is(err, auth.ErrSessionEnded) {
		return auth.ErrSessionEnded
	}

	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) {
		return fmt.Errorf("%s: %w", action, err)
	}

	if len(statusErr.Fields) == 0 {
		return fmt.Errorf("%s: %s", action, statusErr.Message)
	}

	fields := make([]string, 0, len(statusErr.Fields))
	for field := range statusErr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", action, statusErr.Message)
	for _, field := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", field, strings.Join(statusErr.Fields[field], ", "))
	}
	return errors.New(b.String())
}
