package store

import (
	"context"
	"fmt"
	"log"

	"pergaminos/internal/models"
	"pergaminos/internal/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AsynqJobClient is a concrete JobClient backed by asynq/Redis.
// Ensure it implements JobClient
var _ JobClient = (*AsynqJobClient)(nil)

type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(redisAddr, redisPassword string, redisDB int) *AsynqJobClient {
	cli := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	return &AsynqJobClient{client: cli}
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// Enqueue submits a task with retries disabled. No step of the pipeline
// is retried automatically; a failed unit requires an external re-trigger.
func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("AsynqJobClient internal client is not initialized")
	}
	opts = append(opts, asynq.MaxRetry(0))
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		log.Printf("ERROR: Failed to enqueue task type '%s': %v", task.Type(), err)
		return nil, err
	}
	log.Printf("DEBUG: Enqueued task type '%s', id=%s queue=%s", task.Type(), info.ID, info.Queue)
	return info, nil
}

func (jc *AsynqJobClient) EnqueueDocumentProcess(ctx context.Context, documentID uuid.UUID) error {
	task, err := tasks.NewDocumentProcessTask(documentID)
	if err != nil {
		return err
	}
	if _, err := jc.Enqueue(ctx, task, asynq.Queue("documents")); err != nil {
		return fmt.Errorf("enqueue document process for %s: %w", documentID, err)
	}
	return nil
}

func (jc *AsynqJobClient) EnqueueReorder(ctx context.Context, taskID, projectID uuid.UUID, instructions, kind string) error {
	taskType := tasks.TypeReorder
	if kind == models.TaskKindProcess {
		taskType = tasks.TypeProcess
	}
	task, err := tasks.NewBatchTask(taskType, taskID, projectID, instructions)
	if err != nil {
		return err
	}
	if _, err := jc.Enqueue(ctx, task, asynq.Queue("batch")); err != nil {
		return fmt.Errorf("enqueue %s for project %s: %w", taskType, projectID, err)
	}
	return nil
}

func (jc *AsynqJobClient) EnqueueManualChanges(ctx context.Context, taskID, projectID uuid.UUID, changes map[string]models.DocumentChange) error {
	task, err := tasks.NewManualChangesTask(taskID, projectID, changes)
	if err != nil {
		return err
	}
	if _, err := jc.Enqueue(ctx, task, asynq.Queue("batch")); err != nil {
		return fmt.Errorf("enqueue manual changes for project %s: %w", projectID, err)
	}
	return nil
}

func (jc *AsynqJobClient) EnqueueQARun(ctx context.Context, taskID, agentID uuid.UUID) error {
	task, err := tasks.NewQARunTask(taskID, agentID)
	if err != nil {
		return err
	}
	if _, err := jc.Enqueue(ctx, task, asynq.Queue("batch")); err != nil {
		return fmt.Errorf("enqueue qa run for agent %s: %w", agentID, err)
	}
	return nil
}
