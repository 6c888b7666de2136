package io

import "context"

type Producer interface {
	Produce(ctx context.Context, work chan<- *WorkUnit)
}

type Consumer interface {
	DoWork(ctx context.Context, unit *WorkUnit) JobResult
}
