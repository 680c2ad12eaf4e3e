package server_test

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parleyhq/parley/citest/testutil"
	"github.com/parleyhq/parley/pkg/types"
)

var _ = Describe("Threads", func() {
	It("creates, lists, and deletes a thread", func() {
		thread := createThread(client, "Lifecycle")
		Expect(thread.ID).NotTo(BeEmpty())
		Expect(thread.Title).To(Equal("Lifecycle"))

		resp, err := client.Get(ctx, "/thread/"+thread.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, err = client.Delete(ctx, "/thread/"+thread.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, err = client.Get(ctx, "/thread/"+thread.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("does not serve another user's thread", func() {
		thread := createThread(client, "Private")

		resp, err := client.As("intruder").Get(ctx, "/thread/"+thread.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

		resp, err = client.As("intruder").Get(ctx, "/thread/"+thread.ID+"/message")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})

var _ = Describe("Credentials", func() {
	It("seals the key and never serves it back", func() {
		resp, err := client.Put(ctx, "/credential/sealed_1", map[string]string{
			"key": "sk-secret-abcdef0123456789",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.String()).NotTo(ContainSubstring("sk-secret"))

		// The stored blob round-trips through the vault.
		blob, err := testServer.Chat.LookupCredential(ctx, "sealed_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(blob).NotTo(ContainSubstring("sk-secret"))

		plaintext, err := testServer.Vault.Decrypt(blob)
		Expect(err).NotTo(HaveOccurred())
		Expect(plaintext).To(Equal("sk-secret-abcdef0123456789"))
	})

	It("rejects an empty key", func() {
		resp, err := client.Put(ctx, "/credential/sealed_2", map[string]string{})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("Generate", func() {
	It("completes and persists both turns", func() {
		modelID := seedModel(client)
		thread := createThread(client, "Chat")

		resp, err := client.Post(ctx, "/generate", map[string]any{
			"threadID": thread.ID,
			"modelID":  modelID,
			"messages": []types.Turn{{Role: types.RoleUser, Content: "Hi"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var result struct {
			Text         string       `json:"text"`
			Usage        *types.Usage `json:"usage"`
			FinishReason string       `json:"finishReason"`
		}
		Expect(resp.JSON(&result)).To(Succeed())
		Expect(result.Text).To(Equal("Hello from the mock model"))
		Expect(result.FinishReason).To(Equal("stop"))
		Expect(result.Usage.TotalTokens).To(Equal(10))

		// The gateway decrypted the credential before resolving.
		Expect(testServer.Model.LastAPIKey).To(Equal("sk-test-0123456789abcdef"))

		var messages []types.Message
		resp, err = client.Get(ctx, "/thread/"+thread.ID+"/message")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.JSON(&messages)).To(Succeed())
		Expect(messages).To(HaveLen(2))
		Expect(messages[0].Role).To(Equal(types.RoleUser))
		Expect(messages[1].Role).To(Equal(types.RoleAssistant))
		Expect(messages[1].Content).To(Equal("Hello from the mock model"))
		Expect(messages[1].Meta).NotTo(BeNil())
		Expect(messages[1].Meta.FinishReason).To(Equal("stop"))
	})

	It("maps an unknown model to 404", func() {
		resp, err := client.Post(ctx, "/generate", map[string]any{
			"modelID":  "no-such-model",
			"messages": []types.Turn{{Role: types.RoleUser, Content: "Hi"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("classifies upstream failures into the error envelope", func() {
		modelID := seedModel(client)
		testServer.Model.Script(func(m *testutil.MockModel) {
			m.Err = errors.New("status 429: rate limit exceeded")
		})

		resp, err := client.Post(ctx, "/generate", map[string]any{
			"modelID":  modelID,
			"messages": []types.Turn{{Role: types.RoleUser, Content: "Hi"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusTooManyRequests))

		var envelope struct {
			Error struct {
				Kind    string `json:"kind"`
				Message string `json:"message"`
			} `json:"error"`
		}
		Expect(resp.JSON(&envelope)).To(Succeed())
		Expect(envelope.Error.Kind).To(Equal("rate-limit"))
	})

	It("rejects out-of-range sampling settings", func() {
		modelID := seedModel(client)
		temperature := 3.5

		resp, err := client.Post(ctx, "/generate", map[string]any{
			"modelID":  modelID,
			"messages": []types.Turn{{Role: types.RoleUser, Content: "Hi"}},
			"settings": &types.GenerationSettings{Temperature: &temperature},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})
})
