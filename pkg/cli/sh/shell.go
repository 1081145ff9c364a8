// Package sh provides the interactive gateway shell.
package sh

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/gateway"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
)

// ReplyTimeout bounds the wait for the reply to a command.
const ReplyTimeout = 5 * time.Second

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Server *gateway.Server
	// Thing is the session key commands are sent to.
	Thing string

	updates chan update
}

type update struct {
	key string
	msg msgs.Message
}

const (
	shellKey         = "$shell"
	unselectedPrompt = "[none] > "
)

var commands = []*ishell.Cmd{
	&ThingsCmd,
	&UseCmd,
	&LeaveCmd,
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell over a gateway server. It takes over
// Gateway.OnUpdate to collect replies.
func New(srv *gateway.Server) *Shell {
	s := &Shell{
		Interactive: true,
		Shell:       ishell.New(),
		Server:      srv,
		updates:     make(chan update, 64),
	}
	srv.Gateway.OnUpdate = s.onUpdate
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unselectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

func (s *Shell) onUpdate(key string, msg msgs.Message) {
	select {
	case s.updates <- update{key: key, msg: msg}:
	default:
	}
}

// Use selects the thing commands are sent to.
func (s *Shell) Use(key string) error {
	if _, err := s.Server.Gateway.Thing(key); err != nil {
		return err
	}
	s.Thing = key
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", key))
	return nil
}

// Leave clears the selected thing.
func (s *Shell) Leave() {
	s.Thing = ""
	s.Shell.SetPrompt(unselectedPrompt)
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

// MustSelectThing wraps command func requires a selected thing.
func MustSelectThing(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Thing == "" {
			c.Err(fmt.Errorf("no thing selected"))
			return
		}
		fn(c)
	}
}

// DoCommand sends a command to the selected thing and waits for a reply of
// one of the replyTypes, or an ErrorResponse.
func DoCommand(c *ishell.Context, msg msgs.Message, replyTypes ...uint32) error {
	s := ShellFrom(c)
	// drop stale updates
	for len(s.updates) > 0 {
		<-s.updates
	}
	if err := s.Server.Send(s.Thing, msg); err != nil {
		c.Err(err)
		return err
	}
	timeout := time.After(ReplyTimeout)
	for {
		select {
		case u := <-s.updates:
			if u.key != s.Thing || !isReply(u.msg, replyTypes) {
				continue
			}
			if errResp, ok := u.msg.(*msgs.ErrorResponse); ok {
				c.Err(errResp)
				return errResp
			}
			s.PrintMsg(c, u.msg)
			return nil
		case <-timeout:
			err := fmt.Errorf("command timeout")
			c.Err(err)
			return err
		}
	}
}

func isReply(msg msgs.Message, replyTypes []uint32) bool {
	if msg.TypeID() == msgs.ErrorResponseTypeID {
		return true
	}
	for _, id := range replyTypes {
		if msg.TypeID() == id {
			return true
		}
	}
	return false
}

// PrintMsg prints a message in JSON or text.
func (s *Shell) PrintMsg(c *ishell.Context, msg msgs.Message) {
	if s.OutputJSON {
		s.PrintJSON(c, msg)
		return
	}
	c.Printf("%s %s\n",
		reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
		strings.TrimSpace(msg.Serializable().String()))
}

// PrintJSON prints v as JSON.
func (s *Shell) PrintJSON(c *ishell.Context, v interface{}) {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// FormatThing formats a thing session for display.
func FormatThing(info gateway.ThingInfo) string {
	state := "offline"
	if info.Online {
		state = "online"
	}
	return fmt.Sprintf("%s: %s %s (%d data points)", info.Key, info.Name, state, len(info.Data))
}

// FormatDataPoint formats a data point for display.
func FormatDataPoint(dp gateway.DataPoint) string {
	str := fmt.Sprintf("%3d %-16s %v %v unit %d",
		dp.ID, dp.Schema.Name, dp.Schema.TypeID, dp.Schema.ValueKind, dp.Schema.Unit)
	if dp.Value != nil {
		str += " = " + knot.FormatValue(dp.Value)
	}
	return str
}

var (
	// ThingsCmd lists things.
	ThingsCmd = ishell.Cmd{
		Name:    "things",
		Aliases: []string{"list", "l"},
		Help:    "list things",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			things := s.Server.Gateway.Things()
			if s.OutputJSON {
				s.PrintJSON(c, things)
				return
			}
			if len(things) == 0 {
				c.Println("No things found")
				return
			}
			for _, info := range things {
				c.Println(FormatThing(info))
			}
		},
	}

	// UseCmd selects a thing.
	UseCmd = ishell.Cmd{
		Name:    "use",
		Aliases: []string{"u"},
		Help:    "THING",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var key string
			switch {
			case len(c.Args) > 0:
				key = c.Args[0]
			default:
				things := s.Server.Gateway.Things()
				if len(things) == 0 {
					c.Err(fmt.Errorf("no things found"))
					return
				}
				if len(things) > 1 && !s.Interactive {
					c.Err(fmt.Errorf("more than 1 things found in non-interactive mode"))
					return
				}
				index := 0
				if len(things) > 1 {
					items := make([]string, len(things))
					for n, info := range things {
						items[n] = FormatThing(info)
					}
					if index = s.Shell.MultiChoice(items, "Which one to use?"); index < 0 {
						return
					}
				}
				key = things[index].Key
			}
			if err := s.Use(key); err != nil {
				c.Err(err)
			}
		},
	}

	// LeaveCmd clears the selected thing.
	LeaveCmd = ishell.Cmd{
		Name: "leave",
		Help: "clear the selected thing",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Leave()
		},
	}
)
