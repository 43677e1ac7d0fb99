package jobs

import (
	"context"
	"fmt"

	"github.com/ndstyle/mindflow-backend/internal/services"
	"github.com/ndstyle/mindflow-backend/internal/types"
)

// NewDocumentProcessHandler wires the document pipeline into the worker.
func NewDocumentProcessHandler(pipeline services.PipelineService) Handler {
	return HandlerFunc(func(ctx context.Context, job *types.JobRun) error {
		if job.EntityID == nil {
			return fmt.Errorf("document_process job %s missing entity id", job.ID)
		}
		return pipeline.ProcessDocument(ctx, *job.EntityID)
	})
}
