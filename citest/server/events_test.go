package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Event stream", func() {
	It("announces the connection and relays thread events", func() {
		streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, testServer.BaseURL+"/event", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Accept", "text/event-stream")

		resp, err := (&http.Client{}).Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		scanner := bufio.NewScanner(resp.Body)
		readData := func() string {
			for scanner.Scan() {
				line := scanner.Text()
				if strings.HasPrefix(line, "data: ") {
					return strings.TrimPrefix(line, "data: ")
				}
			}
			Fail("event stream ended early")
			return ""
		}

		var hello struct {
			Type string `json:"type"`
		}
		Expect(json.Unmarshal([]byte(readData()), &hello)).To(Succeed())
		Expect(hello.Type).To(Equal("server.connected"))

		// A thread created through the API shows up on the stream.
		go createThread(client, "Announced")

		var announced struct {
			Type string `json:"type"`
		}
		Expect(json.Unmarshal([]byte(readData()), &announced)).To(Succeed())
		Expect(announced.Type).To(Equal("thread.created"))
	})
})
