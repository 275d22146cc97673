package cli

import (
	"bytes"
	"context"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/joomcode/redisfifo/redis"
)

var _ = Describe("cli / splitLine", func() {
	It("splits by spaces", func() {
		Expect(splitLine("  SET  key\tvalue ")).To(Equal([]string{"SET", "key", "value"}))
	})

	It("keeps quoted spaces and escapes", func() {
		Expect(splitLine(`SET "my key" "a\"b\n" ""`)).
			To(Equal([]string{"SET", "my key", "a\"b\n", ""}))
	})

	It("rejects unbalanced quotes", func() {
		_, err := splitLine(`SET "key`)
		Expect(err).To(HaveOccurred())
	})

	It("returns nothing for blank line", func() {
		Expect(splitLine("   ")).To(BeEmpty())
	})
})

var _ = Describe("cli / formatting", func() {
	It("renders replies like redis-cli", func() {
		Expect(formatText(nil, "")).To(Equal("(nil)\n"))
		Expect(formatText(int64(3), "")).To(Equal("(integer) 3\n"))
		Expect(formatText(1.5, "")).To(Equal("(float) 1.5\n"))
		Expect(formatText("a b", "")).To(Equal("\"a b\"\n"))
		Expect(formatText([]interface{}{}, "")).To(Equal("(empty array)\n"))
		Expect(formatText(redis.ErrResult.New("ERR oops"), "")).To(Equal("(error) ERR oops\n"))
	})

	It("numbers array elements", func() {
		Expect(formatText([]interface{}{"a", int64(1)}, "")).
			To(Equal("1) \"a\"\n2) (integer) 1\n"))
	})

	It("builds json document", func() {
		doc, err := replyDocument(2, []interface{}{"a", int64(5), redis.ErrResult.New("ERR x")})
		Expect(err).To(Succeed())
		Expect(gjson.GetBytes(doc, "n").Int()).To(Equal(int64(2)))
		Expect(gjson.GetBytes(doc, "reply.0").String()).To(Equal("a"))
		Expect(gjson.GetBytes(doc, "reply.1").Int()).To(Equal(int64(5)))
		Expect(gjson.GetBytes(doc, "reply.2.error").String()).To(Equal("ERR x"))
	})

	It("puts error reply under error key", func() {
		doc, err := replyDocument(0, redis.ErrResult.New("WRONGTYPE"))
		Expect(err).To(Succeed())
		Expect(gjson.GetBytes(doc, "error").String()).To(Equal("WRONGTYPE"))
		Expect(gjson.GetBytes(doc, "reply").Exists()).To(BeFalse())
	})
})

var _ = Describe("cli / commands", func() {
	var srv *fakeServer

	BeforeEach(func() {
		var err error
		srv, err = startFakeServer()
		Expect(err).To(Succeed())
	})

	AfterEach(func() {
		srv.close()
	})

	run := func(stdin string, args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetArgs(append([]string{"--host", "127.0.0.1", "--port", srv.port()}, args...))
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}

	It("does single command", func() {
		out, err := run("", "do", "ECHO", "hello")
		Expect(err).To(Succeed())
		Expect(out).To(Equal("\"hello\"\n"))
	})

	It("coerces numeric bulk strings", func() {
		out, err := run("", "do", "ECHO", "00501")
		Expect(err).To(Succeed())
		Expect(out).To(Equal("(integer) 501\n"))
	})

	It("flattens arrays and drops nils", func() {
		out, err := run("", "--json", "do", "LRANGE", "l", "0", "-1")
		Expect(err).To(Succeed())
		Expect(gjson.Get(out, "reply").Raw).To(Equal(`["a",10]`))
	})

	It("extracts gjson path", func() {
		out, err := run("", "--path", "reply.0", "do", "LRANGE", "l", "0", "-1")
		Expect(err).To(Succeed())
		Expect(out).To(Equal("a\n"))
	})

	It("fails on error reply", func() {
		out, err := run("", "do", "NOPE")
		Expect(err).To(HaveOccurred())
		Expect(out).To(Equal("(error) ERR unknown command 'NOPE'\n"))
	})

	It("pipes commands from stdin in order", func() {
		out, err := run("PING\n\nECHO \"a b\"\nINCR x\n", "--json", "pipe")
		Expect(err).To(Succeed())
		lines := strings.Split(strings.TrimSpace(out), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(gjson.Get(lines[0], "reply").String()).To(Equal("PONG"))
		Expect(gjson.Get(lines[1], "reply").String()).To(Equal("a b"))
		Expect(gjson.Get(lines[2], "n").Int()).To(Equal(int64(2)))
		Expect(gjson.Get(lines[2], "reply").Int()).To(Equal(int64(1)))
	})

	It("aggregates error replies of pipe", func() {
		out, err := run("BAD1\nPING\nBAD2\n", "pipe")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("BAD1"))
		Expect(err.Error()).To(ContainSubstring("BAD2"))
		Expect(out).To(ContainSubstring("\"PONG\""))
	})

	It("reports line of malformed pipe input", func() {
		_, err := run("PING\nECHO \"x\n", "pipe")
		Expect(err).To(MatchError(ContainSubstring("line 2")))
	})

	It("runs repl over plain input", func() {
		out, err := run(".help\nPING\nECHO 7\n.quit\nPING\n", "repl")
		Expect(err).To(Succeed())
		Expect(out).To(ContainSubstring(".reconnect"))
		Expect(out).To(ContainSubstring("\"PONG\"\n"))
		Expect(out).To(ContainSubstring("(integer) 7\n"))
		Expect(strings.Count(out, "\"PONG\"")).To(Equal(1))
	})
})
