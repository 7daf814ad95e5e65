package command

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/stratadb/strata/core"
	"github.com/stratadb/strata/db"
)

// maxAliasDepth stops alias chains from expanding forever when two aliases
// point at each other.
const maxAliasDepth = 8

// BulkLoader consumes a raw ingest payload. The interpreter only enforces
// the size cap; the payload format belongs to the loader.
type BulkLoader interface {
	Load(payload []byte) error
}

type handler func(it *Interpreter, args []string, depth int) (any, error)

// Interpreter executes whitespace-tokenized administrative commands against
// an engine. Results are structured values, never formatted text.
type Interpreter struct {
	engine *db.Engine
	log    *zap.SugaredLogger
	limits db.Limits

	verbs   map[string]handler
	history []string
	aliases map[string]string
	loader  BulkLoader

	batchActive bool
	batchUsed   int
}

func New(engine *db.Engine) *Interpreter {
	cfg := engine.Config()
	it := &Interpreter{
		engine:  engine,
		log:     cfg.Logger,
		limits:  cfg.Limits,
		aliases: make(map[string]string),
	}
	if it.log == nil {
		it.log = zap.NewNop().Sugar()
	}

	it.verbs = map[string]handler{
		"COUNT":    (*Interpreter).cmdCount,
		"DESCRIBE": (*Interpreter).cmdDescribe,
		"TABLES":   (*Interpreter).cmdTables,
		"HISTORY":  (*Interpreter).cmdHistory,
		"ALIAS":    (*Interpreter).cmdAlias,
		"BATCH":    (*Interpreter).cmdBatch,
		"COMMIT":   (*Interpreter).cmdCommit,
		"HELP":     (*Interpreter).cmdHelp,
	}

	return it
}

// SetBulkLoader installs the loader behind Ingest.
func (it *Interpreter) SetBulkLoader(loader BulkLoader) {
	it.loader = loader
}

// Execute runs one command line. The length cap is checked before anything
// else; inside a batch session the command counter is checked next, and a
// rejected command neither runs nor lands in history.
func (it *Interpreter) Execute(line string) (any, error) {
	if len(line) > it.limits.MaxCommandLen {
		return nil, core.LimitExceededf("command exceeds maximum length of %d", it.limits.MaxCommandLen)
	}

	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, nil
	}

	if it.batchActive && strings.ToUpper(tokens[0]) != "COMMIT" {
		if it.batchUsed >= it.limits.MaxBatchCommands {
			return nil, core.LimitExceededf("batch session exceeds maximum of %d commands", it.limits.MaxBatchCommands)
		}
		it.batchUsed++
	}

	it.history = append(it.history, line)
	it.log.Debugw("command accepted", "verb", strings.ToUpper(tokens[0]))

	return it.dispatch(tokens, 0)
}

func (it *Interpreter) dispatch(tokens []string, depth int) (any, error) {
	verb := strings.ToUpper(tokens[0])

	if h, ok := it.verbs[verb]; ok {
		return h(it, tokens[1:], depth)
	}

	if expansion, ok := it.aliases[strings.ToLower(tokens[0])]; ok {
		if depth >= maxAliasDepth {
			return nil, core.Syntaxf("alias expansion too deep")
		}
		expanded := append(strings.Fields(expansion), tokens[1:]...)
		return it.dispatch(expanded, depth+1)
	}

	return nil, core.Syntaxf("unknown command `%s`", tokens[0])
}

// Ingest accepts a raw bulk payload, enforcing only the size cap before
// handing it to the configured loader.
func (it *Interpreter) Ingest(payload []byte) error {
	if len(payload) > it.limits.MaxIngestBytes {
		return core.LimitExceededf("ingest payload exceeds maximum of %d bytes", it.limits.MaxIngestBytes)
	}
	if it.loader == nil {
		return core.Validationf("no bulk loader configured")
	}
	return it.loader.Load(payload)
}

func (it *Interpreter) cmdCount(args []string, _ int) (any, error) {
	if len(args) < 1 {
		return nil, core.Syntaxf("COUNT requires a table name")
	}
	return it.engine.Count(args[0])
}

func (it *Interpreter) cmdDescribe(args []string, _ int) (any, error) {
	if len(args) < 1 {
		return nil, core.Syntaxf("DESCRIBE requires a table name")
	}
	return it.engine.Describe(args[0])
}

func (it *Interpreter) cmdTables(_ []string, _ int) (any, error) {
	return it.engine.Tables()
}

// cmdHistory returns every accepted command in order, the current HISTORY
// included.
func (it *Interpreter) cmdHistory(_ []string, _ int) (any, error) {
	out := make([]string, len(it.history))
	copy(out, it.history)
	return out, nil
}

func (it *Interpreter) cmdAlias(args []string, _ int) (any, error) {
	if len(args) < 2 {
		return nil, core.Syntaxf("ALIAS format: ALIAS <name> <command>")
	}

	name := strings.ToLower(args[0])
	if err := core.ValidateIdentifier(name); err != nil {
		return nil, err
	}

	it.aliases[name] = strings.Join(args[1:], " ")
	return nil, nil
}

// cmdBatch opens a counted session; a second BATCH resets the counter.
func (it *Interpreter) cmdBatch(_ []string, _ int) (any, error) {
	it.batchActive = true
	it.batchUsed = 0
	return nil, nil
}

// cmdCommit closes the batch session and reports how many commands ran in
// it.
func (it *Interpreter) cmdCommit(_ []string, _ int) (any, error) {
	if !it.batchActive {
		return nil, core.Syntaxf("no batch session active")
	}
	used := it.batchUsed
	it.batchActive = false
	it.batchUsed = 0
	return used, nil
}

func (it *Interpreter) cmdHelp(_ []string, _ int) (any, error) {
	verbs := make([]string, 0, len(it.verbs))
	for verb := range it.verbs {
		verbs = append(verbs, verb)
	}
	sort.Strings(verbs)
	return verbs, nil
}
