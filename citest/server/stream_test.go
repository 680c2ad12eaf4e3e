package server_test

import (
	"encoding/json"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parleyhq/parley/citest/testutil"
	"github.com/parleyhq/parley/pkg/types"
)

type streamEventData struct {
	Type         string       `json:"type"`
	Text         string       `json:"text"`
	FinishReason string       `json:"finishReason"`
	Usage        *types.Usage `json:"usage"`
	Err          *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeStreamEvent(ev testutil.SSEEvent) streamEventData {
	var data streamEventData
	Expect(json.Unmarshal(ev.Data, &data)).To(Succeed())
	return data
}

var _ = Describe("Streaming generation", func() {
	It("streams deltas, finishes once, and persists the full text", func() {
		modelID := seedModel(client)
		thread := createThread(client, "Stream")

		events, _, err := client.PostSSE(ctx, "/generate/stream", map[string]any{
			"threadID": thread.ID,
			"modelID":  modelID,
			"messages": []types.Turn{{Role: types.RoleUser, Content: "Hi"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(6))

		var text string
		for _, ev := range events[:5] {
			Expect(ev.Name).To(Equal("text-delta"))
			text += decodeStreamEvent(ev).Text
		}
		Expect(text).To(Equal("Hello from the mock model"))

		finish := decodeStreamEvent(events[5])
		Expect(events[5].Name).To(Equal("finish"))
		Expect(finish.FinishReason).To(Equal("stop"))
		Expect(finish.Usage.TotalTokens).To(Equal(10))

		var messages []types.Message
		resp, err := client.Get(ctx, "/thread/"+thread.ID+"/message")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.JSON(&messages)).To(Succeed())
		Expect(messages).To(HaveLen(2))
		Expect(messages[1].Content).To(Equal("Hello from the mock model"))
	})

	It("keeps partial text when the stream breaks midway", func() {
		modelID := seedModel(client)
		thread := createThread(client, "Partial")

		testServer.Model.Script(func(m *testutil.MockModel) {
			m.StreamErr = errors.New("read tcp: connection reset by peer")
			m.FailAfter = 2
		})

		events, _, err := client.PostSSE(ctx, "/generate/stream", map[string]any{
			"threadID": thread.ID,
			"modelID":  modelID,
			"messages": []types.Turn{{Role: types.RoleUser, Content: "Hi"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(3))
		Expect(events[0].Name).To(Equal("text-delta"))
		Expect(events[1].Name).To(Equal("text-delta"))
		Expect(events[2].Name).To(Equal("error"))

		errEvent := decodeStreamEvent(events[2])
		Expect(errEvent.Err).NotTo(BeNil())
		Expect(errEvent.Err.Kind).To(Equal("network"))

		// The two delivered deltas survive as an assistant message
		// marked as an errored generation.
		var messages []types.Message
		resp, err := client.Get(ctx, "/thread/"+thread.ID+"/message")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.JSON(&messages)).To(Succeed())
		Expect(messages).To(HaveLen(2))
		Expect(messages[1].Content).To(Equal("Hello from"))
		Expect(messages[1].Meta).NotTo(BeNil())
		Expect(messages[1].Meta.FinishReason).To(Equal("error"))
		Expect(messages[1].Meta.Tokens).To(BeNil())
	})

	It("removes the placeholder when no text arrived", func() {
		modelID := seedModel(client)
		thread := createThread(client, "Empty")

		testServer.Model.Script(func(m *testutil.MockModel) {
			m.StreamErr = errors.New("503 service unavailable")
			m.FailAfter = 0
		})

		events, _, err := client.PostSSE(ctx, "/generate/stream", map[string]any{
			"threadID": thread.ID,
			"modelID":  modelID,
			"messages": []types.Turn{{Role: types.RoleUser, Content: "Hi"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Name).To(Equal("error"))
		Expect(decodeStreamEvent(events[0]).Err.Kind).To(Equal("service-unavailable"))

		// Only the user turn remains.
		var messages []types.Message
		resp, err := client.Get(ctx, "/thread/"+thread.ID+"/message")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.JSON(&messages)).To(Succeed())
		Expect(messages).To(HaveLen(1))
		Expect(messages[0].Role).To(Equal(types.RoleUser))
	})

	It("reports synchronous failures as plain HTTP errors", func() {
		_, resp, err := client.PostSSE(ctx, "/generate/stream", map[string]any{
			"modelID":  "no-such-model",
			"messages": []types.Turn{{Role: types.RoleUser, Content: "Hi"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp).NotTo(BeNil())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("streams without persistence when no thread is given", func() {
		modelID := seedModel(client)

		events, _, err := client.PostSSE(ctx, "/generate/stream", map[string]any{
			"modelID":  modelID,
			"messages": []types.Turn{{Role: types.RoleUser, Content: "Hi"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(6))
		Expect(events[5].Name).To(Equal("finish"))
	})
})
