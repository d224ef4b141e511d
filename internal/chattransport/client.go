// Package chattransport talks to the chat platform's bot HTTP API. Admin
// fan-out uses the synchronous Send; customer messages go through a bounded
// worker pool via Enqueue.
package chattransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var ErrQueueFull = errors.New("chat transport queue full")

type Job struct {
	ChatID  string
	Message Message
	Label   string
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "chat_id", job.ChatID, "label", job.Label)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	MaxWorkers   int
	JobQueueSize int
}

type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

func NewClient(config Config, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:    config.BaseURL,
		token:      config.Token,
		timeout:    timeout,
		http:       &http.Client{Timeout: timeout},
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker pool used by Enqueue. Send works without it.
func (c *Client) Start() {
	c.startOnce.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.processJob)
		}

		c.wg.Add(1)
		go c.dispatch()

		c.logger.Info("chat transport worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Client) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case job := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- job:
				case <-c.ctx.Done():
					return
				}
			case <-c.ctx.Done():
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("chat transport dispatcher shutting down", "dropped", len(c.jobQueue))
			return
		}
	}
}

func (c *Client) Shutdown() {
	c.stopOnce.Do(func() {
		c.logger.Info("shutting down chat transport client")
		c.cancel()
		c.wg.Wait()
		c.logger.Info("chat transport client shutdown complete")
	})
}

// Enqueue hands a message to the worker pool without waiting for delivery.
func (c *Client) Enqueue(job Job) error {
	select {
	case <-c.ctx.Done():
		return context.Canceled
	default:
	}

	select {
	case c.jobQueue <- job:
		return nil
	default:
		c.logger.Warn("chat transport queue full, dropping message",
			"chat_id", job.ChatID,
			"label", job.Label,
			"queue_capacity", cap(c.jobQueue))
		return ErrQueueFull
	}
}

func (c *Client) processJob(job Job) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	messageID, err := c.Send(ctx, job.ChatID, job.Message)
	if err != nil {
		c.logger.Warn("queued chat message failed",
			"chat_id", job.ChatID,
			"label", job.Label,
			"error", err)
		return
	}
	c.logger.Debug("queued chat message delivered",
		"chat_id", job.ChatID,
		"label", job.Label,
		"message_id", messageID)
}

type sendRequest struct {
	ChatID      string  `json:"chat_id"`
	Text        string  `json:"text"`
	ParseMode   string  `json:"parse_mode,omitempty"`
	ReplyMarkup *Markup `json:"reply_markup,omitempty"`
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID json.Number `json:"message_id"`
	} `json:"result"`
}

// Send delivers one message and returns the platform's message id. The call
// is bounded by ctx and by the client timeout, whichever is shorter.
func (c *Client) Send(ctx context.Context, chatID string, msg Message) (string, error) {
	jsonData, err := json.Marshal(sendRequest{
		ChatID:      chatID,
		Text:        msg.Text,
		ParseMode:   "HTML",
		ReplyMarkup: msg.Markup,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendMessage", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResponse sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !apiResponse.OK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, apiResponse.Description)
	}

	messageID := apiResponse.Result.MessageID.String()
	if messageID == "" {
		return "", errors.New("chat API response missing message_id")
	}
	return messageID, nil
}
