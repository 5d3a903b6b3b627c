package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/jobqueue"
)

// QueuePatterns are the redis keys the monitor is allowed to list and delete.
var QueuePatterns = []string{
	jobqueue.JobKeyPrefix + "*",
	jobqueue.JobQueueKey,
	jobqueue.JobProcessingKey,
	jobqueue.JobStatsKey,
	"cashduezy:feed:*",
	"blog:counters:*",
}

// JobStats is the part of the job queue the monitor reports on.
type JobStats interface {
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
}

// QueueItem is one redis key as shown by the admin monitor.
type QueueItem struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
	TTL   int64  `json:"ttl_seconds"`
	Size  int    `json:"size"`
}

// AdminQueueController exposes the redis backed queues to admins.
type AdminQueueController struct {
	queueRepo repository.QueueRepository
	stats     JobStats
}

func NewAdminQueueController(queueRepo repository.QueueRepository, stats JobStats) *AdminQueueController {
	return &AdminQueueController{queueRepo: queueRepo, stats: stats}
}

// HandleAdminQueues lists queue keys and job counters.
func (aqc *AdminQueueController) HandleAdminQueues(c *fiber.Ctx) error {
	items, err := aqc.getQueueItems(c.UserContext())
	if err != nil {
		log.Errorf("[AdminQueue] list keys: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "queue_unavailable", "Could not read queue data")
	}

	counts := map[string]int64{}
	if aqc.stats != nil {
		stats, err := aqc.stats.GetJobStats(c.UserContext())
		if err != nil {
			log.Warnf("[AdminQueue] job stats: %v", err)
		}
		for status, n := range stats {
			counts[string(status)] = n
		}
	}

	return c.JSON(fiber.Map{
		"items":        items,
		"count":        len(items),
		"job_stats":    counts,
		"generated_at": time.Now().UTC(),
	})
}

// HandleAdminQueueDelete removes a single monitored key.
func (aqc *AdminQueueController) HandleAdminQueueDelete(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return apiError(c, fiber.StatusBadRequest, "invalid_key", "key is required")
	}
	if !monitored(key) {
		return apiError(c, fiber.StatusBadRequest, "invalid_key", "key is not managed by the queue monitor")
	}

	n, err := aqc.queueRepo.DeleteKeys(c.UserContext(), []string{key})
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "delete_failed", err.Error())
	}
	if n == 0 {
		return apiError(c, fiber.StatusNotFound, "not_found", "key not found")
	}
	log.Infof("[AdminQueue] deleted %s", key)
	return c.JSON(fiber.Map{"deleted": n})
}

func (aqc *AdminQueueController) getQueueItems(ctx context.Context) ([]QueueItem, error) {
	keys, err := aqc.queueRepo.FindKeys(ctx, QueuePatterns)
	if err != nil {
		return nil, err
	}

	items := make([]QueueItem, 0, len(keys))
	for _, key := range keys {
		info, err := aqc.queueRepo.Inspect(ctx, key)
		if err != nil {
			// expired between SCAN and inspect
			continue
		}
		item := QueueItem{Key: key, Type: keyType(key), TTL: -1, Size: int(info.Len)}
		if info.TTL > 0 {
			item.TTL = int64(info.TTL.Seconds())
		}

		switch info.Kind {
		case "list":
			item.Value = fmt.Sprintf("%d jobs", info.Len)
		case "hash":
			item.Value = fmt.Sprintf("%d fields", info.Len)
		case "string":
			item.Value = info.Value
			if item.Type == "job" {
				item.Value = jobSummary(info.Value)
			}
		default:
			item.Value = info.Kind
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type < items[j].Type
		}
		return items[i].Key < items[j].Key
	})
	return items, nil
}

func keyType(key string) string {
	switch {
	case key == jobqueue.JobQueueKey:
		return "job_queue"
	case key == jobqueue.JobProcessingKey:
		return "job_processing"
	case key == jobqueue.JobStatsKey:
		return "job_stats"
	case strings.HasPrefix(key, jobqueue.JobKeyPrefix):
		return "job"
	case strings.HasPrefix(key, "blog:counters:"):
		return "counter"
	case strings.Contains(key, "feed:"):
		return "feed_cache"
	}
	return "unknown"
}

func monitored(key string) bool {
	switch key {
	case jobqueue.JobQueueKey, jobqueue.JobProcessingKey, jobqueue.JobStatsKey:
		return true
	}
	return strings.HasPrefix(key, jobqueue.JobKeyPrefix) ||
		strings.HasPrefix(key, "blog:counters:") ||
		strings.HasPrefix(key, "cashduezy:feed:")
}

func jobSummary(raw string) string {
	var job jobqueue.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return "unreadable job"
	}
	return fmt.Sprintf("%s %s (retries %d)", job.Type, job.Status, job.RetryCount)
}
