package port

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jessonx/flow-field/pkg/registry"
	"github.com/tidwall/redcon"
	"golang.org/x/sync/errgroup"
)

const RedisOk = "OK"

var address = flag.String("address", ":6380", "The ip:port to listen on for Redis protocol.")

// redisCommand represents a Redis command with its arguments.
type redisCommand struct {
	command string
	args    []string
}

// redisOutput conforms to a real Redis server output on non pub / sub commands.
type redisOutput struct {
	closeConnection bool     // Closes the connection if true.
	writeNil        bool     // Writes a nil value if true.
	err             *string  // Error to return if set.
	writeInt        *int     // Writes an integer value if set.
	writeBulk       *string  // Writes a single bulk string if set.
	writeBulks      []string // Writes an array of bulk strings if set.
	writeString     string   // Writes a simple string value otherwise.
}

func closeRedisConnection(msg string) redisOutput {
	return redisOutput{writeString: msg, closeConnection: true}
}

func writeRedisNil() redisOutput {
	return redisOutput{writeNil: true}
}

func writeRedisInt(i int) redisOutput {
	return redisOutput{writeInt: &i}
}

// writeRedisBool renders a boolean the way Redis does, as :1 or :0.
func writeRedisBool(ok bool) redisOutput {
	if ok {
		return writeRedisInt(1)
	}
	return writeRedisInt(0)
}

func writeRedisString(s string) redisOutput {
	return redisOutput{writeString: s}
}

func writeRedisBulk(s string) redisOutput {
	return redisOutput{writeBulk: &s}
}

func writeRedisBulks(bulks []string) redisOutput {
	if bulks == nil {
		bulks = []string{} // A missing roster still answers with an empty array.
	}
	return redisOutput{writeBulks: bulks}
}

func writeRedisError(err error) redisOutput {
	msg := "ERR " + err.Error()
	return redisOutput{err: &msg}
}

func wrongArgCount(command string) redisOutput {
	return writeRedisError(fmt.Errorf("wrong number of arguments for '%s' command", command))
}

type redisHandler struct {
	rosters *registry.Registry
}

// newRedisHandler creates a new redisHandler.
func newRedisHandler(rosters *registry.Registry) (*redisHandler, error) {
	if rosters == nil {
		return nil, errors.New("expected a non-nil registry")
	}
	return &redisHandler{rosters: rosters}, nil
}

func (rh *redisHandler) handle(cmd redisCommand) redisOutput {
	switch cmd.command {
	case "PING":
		return writeRedisString("PONG")
	case "QUIT":
		return closeRedisConnection(RedisOk)
	case "ADD":
		if len(cmd.args) != 2 && len(cmd.args) != 3 {
			return wrongArgCount(cmd.command)
		}
		e := registry.Entity{ID: cmd.args[1]}
		if len(cmd.args) == 3 {
			e.Data = cmd.args[2]
		}
		return writeRedisBool(rh.rosters.Add(cmd.args[0], e))
	case "HAS":
		if len(cmd.args) != 2 {
			return wrongArgCount(cmd.command)
		}
		return writeRedisBool(rh.rosters.Has(cmd.args[0], registry.Entity{ID: cmd.args[1]}))
	case "DATA":
		if len(cmd.args) != 2 {
			return wrongArgCount(cmd.command)
		}
		e, found := rh.rosters.Member(cmd.args[0], cmd.args[1])
		if !found {
			return writeRedisNil()
		}
		return writeRedisBulk(e.Data)
	case "REM":
		if len(cmd.args) != 2 {
			return wrongArgCount(cmd.command)
		}
		return writeRedisBool(rh.rosters.Remove(cmd.args[0], registry.Entity{ID: cmd.args[1]}))
	case "MOVEUP":
		if len(cmd.args) != 2 {
			return wrongArgCount(cmd.command)
		}
		if err := rh.rosters.MoveUp(cmd.args[0], registry.Entity{ID: cmd.args[1]}); err != nil {
			return writeRedisError(err)
		}
		return writeRedisString(RedisOk)
	case "MOVEDOWN":
		if len(cmd.args) != 2 {
			return wrongArgCount(cmd.command)
		}
		if err := rh.rosters.MoveDown(cmd.args[0], registry.Entity{ID: cmd.args[1]}); err != nil {
			return writeRedisError(err)
		}
		return writeRedisString(RedisOk)
	case "SORT":
		if len(cmd.args) != 1 && len(cmd.args) != 2 {
			return wrongArgCount(cmd.command)
		}
		descending := false
		if len(cmd.args) == 2 {
			if !strings.EqualFold(cmd.args[1], "DESC") {
				return writeRedisError(fmt.Errorf("unknown sort option '%s'", cmd.args[1]))
			}
			descending = true
		}
		rh.rosters.Sort(cmd.args[0], descending)
		return writeRedisString(RedisOk)
	case "MEMBERS":
		if len(cmd.args) != 1 {
			return wrongArgCount(cmd.command)
		}
		return writeRedisBulks(rh.rosters.Members(cmd.args[0]))
	case "LEN":
		if len(cmd.args) != 1 {
			return wrongArgCount(cmd.command)
		}
		return writeRedisInt(rh.rosters.Len(cmd.args[0]))
	case "SHIFT":
		if len(cmd.args) != 1 {
			return wrongArgCount(cmd.command)
		}
		e, found := rh.rosters.Shift(cmd.args[0])
		if !found {
			return writeRedisNil()
		}
		return writeRedisBulk(e.ID)
	case "POP":
		if len(cmd.args) != 1 {
			return wrongArgCount(cmd.command)
		}
		e, found := rh.rosters.Pop(cmd.args[0])
		if !found {
			return writeRedisNil()
		}
		return writeRedisBulk(e.ID)
	case "CLEAR":
		if len(cmd.args) != 1 {
			return wrongArgCount(cmd.command)
		}
		rh.rosters.Clear(cmd.args[0])
		return writeRedisString(RedisOk)
	case "DESTROY":
		if len(cmd.args) != 1 {
			return wrongArgCount(cmd.command)
		}
		return writeRedisBool(rh.rosters.Destroy(cmd.args[0]))
	case "DUMP":
		if len(cmd.args) != 1 {
			return wrongArgCount(cmd.command)
		}
		rh.rosters.Dump(cmd.args[0])
		return writeRedisString(RedisOk)
	case "ROSTERS":
		if len(cmd.args) != 0 {
			return wrongArgCount(cmd.command)
		}
		return writeRedisBulks(rh.rosters.Rosters())
	default:
		return writeRedisError(fmt.Errorf("unknown command '%s'", cmd.command))
	}
}

// writeOutput renders a handler output onto the wire.
func writeOutput(conn redcon.Conn, output redisOutput) {
	switch {
	case output.closeConnection:
		conn.WriteString(output.writeString)
		if err := conn.Close(); err != nil {
			slog.Error("Failed to close connection.", "error", err)
		}
	case output.err != nil:
		conn.WriteError(*output.err)
	case output.writeNil:
		conn.WriteNull()
	case output.writeInt != nil:
		conn.WriteInt(*output.writeInt)
	case output.writeBulk != nil:
		conn.WriteBulkString(*output.writeBulk)
	case output.writeBulks != nil:
		conn.WriteArray(len(output.writeBulks))
		for _, bulk := range output.writeBulks {
			conn.WriteBulkString(bulk)
		}
	default:
		conn.WriteString(output.writeString)
	}
}

// RunRedisServer starts a Redis protocol server that serves the given roster registry.
// It blocks until the context is cancelled or the listener fails.
func RunRedisServer(ctx context.Context, rosters *registry.Registry) error {
	if *address == "" {
		return errors.New("expected a non-empty --address flag")
	}

	redisHandler, err := newRedisHandler(rosters)
	if err != nil {
		return fmt.Errorf("failed to create a new redis handler: %w", err)
	}

	redisServer := redcon.NewServerNetwork("tcp" /*net*/, *address,
		/*handler*/ func(conn redcon.Conn, cmd redcon.Command) {
			// Convert redcon.Command to redisCommand. Command names arrive in
			// whatever case the client typed them.
			command := redisCommand{
				command: strings.ToUpper(string(cmd.Args[0])),
				args:    make([]string, len(cmd.Args)-1),
			}
			for i := 1; i < len(cmd.Args); i++ {
				command.args[i-1] = string(cmd.Args[i])
			}
			writeOutput(conn, redisHandler.handle(command))
		},
		/*accept*/ func(conn redcon.Conn) bool {
			return true // Accept all connections.
		},
		/*close*/ func(conn redcon.Conn, err error) {
		})

	group, groupCtx := errgroup.WithContext(ctx)
	listenErrSignal := make(chan error, 1)
	group.Go(func() error {
		// Close flips the serve loop into an error return; only report it
		// when the stop was not our own shutdown.
		if err := redisServer.ListenServeAndSignal(listenErrSignal); err != nil && groupCtx.Err() == nil {
			return fmt.Errorf("redis server stopped unexpectedly: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		if err := <-listenErrSignal; err != nil {
			return nil // The serve goroutine already carries the listen error.
		}
		// Tear the listener down once the surrounding context is cancelled or
		// the serve loop fails; Close unblocks the serve goroutine.
		<-groupCtx.Done()
		if err := redisServer.Close(); err != nil {
			return fmt.Errorf("failed to close the redis listener: %w", err)
		}
		return nil
	})
	return group.Wait()
}
