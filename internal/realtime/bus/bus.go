package bus

import (
	"context"

	"github.com/yungbote/studyforge-backend/internal/realtime"
)

// Bus carries realtime messages between the process that generates them and the
// processes holding SSE connections.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
