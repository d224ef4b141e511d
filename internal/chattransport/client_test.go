package chattransport_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/chattransport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeChatAPI struct {
	mu       sync.Mutex
	requests []map[string]interface{}
	auth     []string
	status   int
	delay    time.Duration
}

func (f *fakeChatAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests = append(f.requests, body)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	n := len(f.requests)
	status := f.status
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "description": "chat not found"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": map[string]interface{}{"message_id": 1000 + n}})
}

func (f *fakeChatAPI) Requests() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.requests...)
}

func (f *fakeChatAPI) set(status int, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.delay = delay
}

func (f *fakeChatAPI) Auth() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

var _ = Describe("Client", func() {
	var (
		api    *fakeChatAPI
		server *httptest.Server
		client *chattransport.Client
		logger *slog.Logger
	)

	BeforeEach(func() {
		api = &fakeChatAPI{}
		server = httptest.NewServer(api)
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		client = chattransport.NewClient(chattransport.Config{
			BaseURL:    server.URL,
			Token:      "bot-token",
			Timeout:    200 * time.Millisecond,
			MaxWorkers: 2,
		}, logger)
	})

	AfterEach(func() {
		client.Shutdown()
		server.Close()
	})

	It("sends text with markup and returns the message id", func() {
		msg := chattransport.Message{
			Text: "hello",
			Markup: chattransport.Keyboard(chattransport.Row(
				chattransport.Button{Text: "OK", CallbackData: "ok:1"},
			)),
		}

		id, err := client.Send(context.Background(), "555", msg)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("1001"))

		reqs := api.Requests()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0]["chat_id"]).To(Equal("555"))
		Expect(reqs[0]["text"]).To(Equal("hello"))
		Expect(reqs[0]).To(HaveKey("reply_markup"))
		Expect(api.Auth()).To(ConsistOf("Bearer bot-token"))
	})

	It("reports API rejections", func() {
		api.set(http.StatusBadRequest, 0)

		_, err := client.Send(context.Background(), "555", chattransport.Message{Text: "x"})
		Expect(err).To(MatchError(ContainSubstring("chat not found")))
	})

	It("gives up when the API is slower than the timeout", func() {
		api.set(0, time.Second)

		start := time.Now()
		_, err := client.Send(context.Background(), "555", chattransport.Message{Text: "x"})
		Expect(err).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 900*time.Millisecond))
	})

	It("delivers enqueued jobs through the worker pool", func() {
		client.Start()

		for i := 0; i < 5; i++ {
			Expect(client.Enqueue(chattransport.Job{ChatID: "777", Message: chattransport.Message{Text: "queued"}})).To(Succeed())
		}

		Eventually(api.Requests).Should(HaveLen(5))
	})

	It("rejects jobs after shutdown", func() {
		client.Start()
		client.Shutdown()

		err := client.Enqueue(chattransport.Job{ChatID: "777"})
		Expect(err).To(HaveOccurred())
	})
})
