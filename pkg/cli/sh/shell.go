package sh

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cobslink/pkg/l0/cobs"
	"github.com/robotalks/cobslink/pkg/l1/comm/mqtt"
)

// Config provides options of the shell.
type Config struct {
	// MQTTURL specifies the broker monitors publish to.
	// e.g. mqtt://host:port/topic-prefix
	MQTTURL string
}

var defaultConfig = Config{
	MQTTURL: "mqtt://localhost:1883/cobslink/",
}

func init() {
	if val := os.Getenv("COBSLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *Config

	// Decoder keeps the state of the feed command across lines.
	Decoder cobs.StreamDecoder

	frames [][]byte
	errs   []*cobs.FrameError
	queue  *mqtt.Queue
}

const (
	shellKey = "$shell"
	prompt   = "cobs > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&EncodeCmd,
		&DecodeCmd,
		&FeedCmd,
		&ResetCmd,
		&PolicyCmd,
		&DiscoverCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.initDecoder()
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

func (s *Shell) initDecoder() {
	s.Decoder.Handler = cobs.HandleFrameFunc(func(frame []byte) {
		s.frames = append(s.frames, frame)
	})
	s.Decoder.ErrorHandler = cobs.HandleFrameErrorFunc(func(err *cobs.FrameError) {
		s.errs = append(s.errs, err)
	})
}

// FeedResult is what a chunk fed to the decoder produced.
type FeedResult struct {
	Frames  [][]byte
	Errors  []*cobs.FrameError
	Pending bool
}

// Feed writes a chunk to the decoder and collects the result.
// With StopOnMalformed, feeding continues after the error is recorded.
func (s *Shell) Feed(chunk []byte) FeedResult {
	for len(chunk) > 0 {
		n, err := s.Decoder.Write(chunk)
		if ferr, ok := err.(*cobs.FrameError); ok {
			s.errs = append(s.errs, ferr)
		}
		chunk = chunk[n:]
	}
	res := FeedResult{Frames: s.frames, Errors: s.errs, Pending: s.Decoder.Pending()}
	s.frames, s.errs = nil, nil
	return res
}

// Print prints a value, in JSON when OutputJSON is set.
func (s *Shell) Print(c *ishell.Context, text string, v interface{}) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Context creates a context canceled by Ctrl-C while a command runs.
func (s *Shell) Context() (context.Context, func()) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func hexJSON(frames [][]byte) []string {
	out := make([]string, len(frames))
	for n, frame := range frames {
		out[n] = FormatHex(frame)
	}
	return out
}

var (
	// EncodeCmd encodes a payload into a frame with delimiter.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"enc", "e"},
		Help:    "HEX...",
		Func: func(c *ishell.Context) {
			payload, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			frame := FormatHex(cobs.AppendFrame(nil, payload))
			ShellFrom(c).Print(c, frame, map[string]string{"frame": frame})
		},
	}

	// DecodeCmd decodes a complete frame.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"dec", "d"},
		Help:    "HEX...",
		Func: func(c *ishell.Context) {
			frame, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if n := len(frame); n > 0 && frame[n-1] == cobs.Delimiter {
				frame = frame[:n-1]
			}
			payload, err := cobs.DecodeFrame(frame)
			if err != nil {
				c.Err(err)
				return
			}
			text := FormatHex(payload)
			ShellFrom(c).Print(c, text, map[string]string{"payload": text})
		},
	}

	// FeedCmd feeds a chunk to the stream decoder.
	FeedCmd = ishell.Cmd{
		Name:    "feed",
		Aliases: []string{"f"},
		Help:    "HEX...",
		Func: func(c *ishell.Context) {
			chunk, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			res := s.Feed(chunk)
			if s.OutputJSON {
				errs := make([]string, len(res.Errors))
				for n, e := range res.Errors {
					errs[n] = e.Error()
				}
				s.Print(c, "", map[string]interface{}{
					"frames":  hexJSON(res.Frames),
					"errors":  errs,
					"pending": res.Pending,
				})
				return
			}
			for _, frame := range res.Frames {
				c.Printf("frame: %s\n", FormatHex(frame))
			}
			for _, e := range res.Errors {
				c.Printf("error: %v\n", e)
			}
			if res.Pending {
				c.Println("(partial frame pending)")
			}
		},
	}

	// ResetCmd discards the partial frame in the stream decoder.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Decoder.Reset()
			c.Println("OK")
		},
	}

	// PolicyCmd shows or sets the malformed frame policy.
	PolicyCmd = ishell.Cmd{
		Name: "policy",
		Help: "[discard|partial|stop]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				policy, err := cobs.ParseMalformedPolicy(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				s.Decoder.Policy = policy
			}
			name := s.Decoder.Policy.String()
			s.Print(c, name, map[string]string{"policy": name})
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).Run(flag.Args()...)
}
