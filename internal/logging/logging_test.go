package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openwisp/docker-openwisp-e2e/internal/logging"
)

var _ = Describe("Logger", func() {
	It("should tee JSON entries to the file sink", func() {
		var buf bytes.Buffer
		logger, err := logging.New(logging.Options{Level: "debug", Format: "console", File: &buf})
		Expect(err).NotTo(HaveOccurred())

		logger.Sugar().Infow("probe succeeded", "url", "https://localhost/admin/login/")
		Expect(logger.Sync()).To(Or(Succeed(), HaveOccurred()))

		var entry map[string]any
		Expect(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry)).To(Succeed())
		Expect(entry).To(HaveKeyWithValue("msg", "probe succeeded"))
		Expect(entry).To(HaveKeyWithValue("url", "https://localhost/admin/login/"))
	})

	It("should fall back to info on an unknown level", func() {
		var buf bytes.Buffer
		logger, err := logging.New(logging.Options{Level: "loud", File: &buf})
		Expect(err).NotTo(HaveOccurred())

		logger.Debug("hidden")
		logger.Info("shown")

		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		Expect(buf.String()).To(ContainSubstring("shown"))
	})

	It("should write rotated files", func() {
		path := filepath.Join(GinkgoT().TempDir(), "run.log")
		w := logging.NewRotatingFile(path)
		_, err := w.Write([]byte("captured\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("captured\n"))
	})
})
