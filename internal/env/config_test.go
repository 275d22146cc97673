package env

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"

	"github.com/joomcode/redisfifo/redisconn"
)

var _ = Describe("env / Config", func() {
	ctx := context.Background()

	It("has defaults", func() {
		conf, err := loadConfig(ctx, envconfig.MapLookuper(map[string]string{}))
		Expect(err).To(Succeed())
		Expect(conf.Addr()).To(Equal("127.0.0.1:6379"))
		Expect(conf.Charset).To(BeEmpty())
		Expect(conf.Verbose).To(BeFalse())
		Expect(conf.IOTimeout).To(Equal(time.Second))
	})

	It("reads REDISFIFO_* variables", func() {
		conf, err := loadConfig(ctx, envconfig.MapLookuper(map[string]string{
			"REDISFIFO_HOST":       "::1",
			"REDISFIFO_PORT":       "7000",
			"REDISFIFO_CHARSET":    "shift_jis",
			"REDISFIFO_VERBOSE":    "true",
			"REDISFIFO_IO_TIMEOUT": "250ms",
		}))
		Expect(err).To(Succeed())
		Expect(conf.Addr()).To(Equal("[::1]:7000"))

		opts := conf.Opts(redisconn.NoopLogger{})
		Expect(opts.Charset).To(Equal("shift_jis"))
		Expect(opts.Verbose).To(BeTrue())
		Expect(opts.IOTimeout).To(Equal(250 * time.Millisecond))
		Expect(opts.Logger).To(Equal(redisconn.NoopLogger{}))
		Expect(opts.Async).To(BeFalse())
	})

	It("rejects malformed values", func() {
		_, err := loadConfig(ctx, envconfig.MapLookuper(map[string]string{
			"REDISFIFO_PORT": "port",
		}))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("env / MakeLogger", func() {
	It("builds quiet and verbose loggers", func() {
		quiet, err := MakeLogger(false)
		Expect(err).To(Succeed())
		Expect(quiet.Core().Enabled(zap.DebugLevel)).To(BeFalse())

		verbose, err := MakeLogger(true)
		Expect(err).To(Succeed())
		Expect(verbose.Core().Enabled(zap.DebugLevel)).To(BeTrue())
	})
})
