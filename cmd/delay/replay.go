package main

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dedis.ch/delay"
	"go.dedis.ch/delay/cli"
	"go.dedis.ch/delay/contracts/transfer"
	"go.dedis.ch/delay/contracts/value"
	"go.dedis.ch/delay/core"
	"go.dedis.ch/delay/core/account"
	"go.dedis.ch/delay/core/execution/native"
	"go.dedis.ch/delay/core/schedule/config"
	"go.dedis.ch/delay/core/schedule/engine"
	"go.dedis.ch/delay/core/schedule/gateway"
	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/core/store/kv"
	"go.dedis.ch/delay/core/store/mem"
	"go.dedis.ch/delay/serde"
	"golang.org/x/xerrors"
)

// replayAction is the action of the replay command.
type replayAction struct {
	out io.Writer
}

func (a replayAction) Execute(flags cli.Flags) error {
	cfg := config.Default()

	if flags.Path("config") != "" {
		var err error

		cfg, err = config.Load(flags.Path("config"))
		if err != nil {
			return xerrors.Errorf("failed to load config: %v", err)
		}
	}

	ctx, err := contextOf(flags.String("format"))
	if err != nil {
		return err
	}

	s, err := loadScript(flags.Path("script"))
	if err != nil {
		return err
	}

	opts := []engine.Option{engine.WithSerdeContext(ctx)}

	if flags.Path("db") != "" {
		db, err := kv.New(flags.Path("db"))
		if err != nil {
			return xerrors.Errorf("failed to open database: %v", err)
		}

		defer db.Close()

		opts = append(opts, engine.WithDB(db))
	}

	if flags.String("metrics") != "" {
		stop, err := serveMetrics(flags.String("metrics"))
		if err != nil {
			return err
		}

		defer stop()
	}

	r, err := newReplayer(a.out, cfg, ctx, opts...)
	if err != nil {
		return err
	}

	err = r.run(s)
	if err != nil {
		return err
	}

	time.Sleep(flags.Duration("wait"))

	return nil
}

// replayer applies the events of a script to an engine and prints the
// outcome of each of them.
type replayer struct {
	out      io.Writer
	ctx      serde.Context
	snap     *mem.Snapshot
	accounts account.Store
	engine   *engine.Engine
	gateway  gateway.Gateway
	keys     keyring
	names    map[string]types.ID
	order    []string
	ids      []string
}

func newReplayer(out io.Writer, cfg config.Config, ctx serde.Context,
	opts ...engine.Option) (*replayer, error) {

	accounts := account.NewStore(ctx)

	exec := native.NewRegistry(native.WithWhitelist(cfg.Whitelist...))
	exec.Set(transfer.Kind, transfer.NewHandler(ctx, accounts, transfer.Limits{
		MaxTransfers:      cfg.MaxTransfers,
		MaxTokenTransfers: cfg.MaxTokenTransfers,
		Fee:               cfg.ExecutionFee,
	}))
	exec.Set(value.Kind, value.NewHandler(ctx))

	eng, err := engine.NewEngine(cfg, exec, account.NewResolver(accounts), opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create engine: %v", err)
	}

	r := &replayer{
		out:      out,
		ctx:      ctx,
		snap:     mem.NewSnapshot(),
		accounts: accounts,
		engine:   eng,
		gateway:  gateway.NewGateway(eng),
		keys:     keyring{},
		names:    make(map[string]types.ID),
	}

	eng.Watch(r)

	return r, nil
}

// NotifyResolution implements core.Observer. It prints the resolutions as
// they happen.
func (r *replayer) NotifyResolution(event core.Resolution) {
	line := fmt.Sprintf("  => %v %v", event.ID, event.Status)
	if event.Result != nil {
		line += " " + event.Result.Code
	}

	fmt.Fprintln(r.out, line)
}

func (r *replayer) run(s script) error {
	start, err := s.startTime()
	if err != nil {
		return err
	}

	for _, spec := range s.Accounts {
		acc, err := r.keys.account(spec)
		if err != nil {
			return err
		}

		err = r.accounts.Set(r.snap, acc)
		if err != nil {
			return xerrors.Errorf("failed to set account: %v", err)
		}

		r.ids = append(r.ids, acc.ID)
	}

	for i, event := range s.Events {
		offset, err := event.offset()
		if err != nil {
			return xerrors.Errorf("event %d: %v", i, err)
		}

		outcome, err := r.apply(start.Add(offset), event)
		if err != nil {
			outcome = "error: " + err.Error()
		}

		fmt.Fprintf(r.out, "[+%v] %s %s: %s\n", offset, event.Op, event.Name, outcome)
	}

	return r.summary()
}

func (r *replayer) apply(now time.Time, event eventSpec) (string, error) {
	step := types.Step{Time: now}

	switch event.Op {
	case "create":
		return r.create(step, event)
	case "sign":
		id, err := r.lookup(event.Name)
		if err != nil {
			return "", err
		}

		entry, err := r.engine.GetScheduleInfo(id)
		if err != nil {
			return "", err
		}

		signed, err := r.signInner(entry.Inner, event.Signers)
		if err != nil {
			return "", err
		}

		res, err := r.gateway.Sign(r.snap, step, id, signed)
		if err != nil {
			return "", err
		}

		outcome := fmt.Sprintf("%v added=%d %v", id, res.Added, res.Status)
		if res.Result != nil {
			outcome += " " + res.Result.Code
		}

		return outcome, nil
	case "delete":
		id, err := r.lookup(event.Name)
		if err != nil {
			return "", err
		}

		signed := make([]gateway.Signed, len(event.Signers))
		for i, name := range event.Signers {
			signed[i], err = gateway.SignDelete(r.keys.signer(name), id)
			if err != nil {
				return "", err
			}
		}

		err = r.gateway.Delete(r.snap, step, id, signed)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%v %v", id, types.StatusDeleted), nil
	case "advance":
		expired, err := r.engine.AdvanceTime(r.snap, now)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("expired=%v", expired), nil
	default:
		return "", xerrors.Errorf("unknown operation '%s'", event.Op)
	}
}

func (r *replayer) create(step types.Step, event eventSpec) (string, error) {
	inner, err := r.innerOf(event)
	if err != nil {
		return "", err
	}

	admin, err := r.keys.key(event.Admin)
	if err != nil {
		return "", xerrors.Errorf("invalid admin key: %v", err)
	}

	spec := types.Spec{
		Creator:  event.Creator,
		Payer:    event.Payer,
		Inner:    inner,
		AdminKey: admin,
		Memo:     event.Memo,
	}

	if event.Expiry != "" {
		expiry, err := time.ParseDuration(event.Expiry)
		if err != nil {
			return "", xerrors.Errorf("invalid expiry: %v", err)
		}

		spec.Expiry = step.Time.Add(expiry)
	}

	signed, err := r.signInner(inner, event.Signers)
	if err != nil {
		return "", err
	}

	res, err := r.gateway.Create(r.snap, step, spec, signed)
	if err != nil {
		return "", err
	}

	if event.Name != "" {
		if _, found := r.names[event.Name]; !found {
			r.order = append(r.order, event.Name)
		}

		r.names[event.Name] = res.ID
	}

	outcome := fmt.Sprintf("%v %v", res.ID, res.Status)
	if res.Duplicate {
		outcome += " duplicate"
	}

	return outcome, nil
}

func (r *replayer) innerOf(event eventSpec) (types.InnerTx, error) {
	inner := types.InnerTx{Kind: event.Kind, Body: []byte(event.Body)}

	var err error

	switch {
	case event.Transfer != nil:
		inner.Body, err = event.Transfer.toTransfer().Serialize(r.ctx)
	case event.Value != nil:
		inner.Body, err = event.Value.toRequest().Encode(r.ctx)
	}

	if err != nil {
		return inner, xerrors.Errorf("failed to encode body: %v", err)
	}

	return inner, nil
}

func (r *replayer) signInner(inner types.InnerTx, names []string) ([]gateway.Signed, error) {
	signed := make([]gateway.Signed, len(names))

	for i, name := range names {
		var err error

		signed[i], err = gateway.SignInner(r.keys.signer(name), inner)
		if err != nil {
			return nil, err
		}
	}

	return signed, nil
}

func (r *replayer) lookup(name string) (types.ID, error) {
	id, found := r.names[name]
	if !found {
		return 0, xerrors.Errorf("unknown schedule '%s'", name)
	}

	return id, nil
}

// summary prints the schedules and the accounts of the script.
func (r *replayer) summary() error {
	fmt.Fprintln(r.out, "schedules:")

	for _, name := range r.order {
		id := r.names[name]

		entry, err := r.engine.GetScheduleInfo(id)
		if err != nil {
			fmt.Fprintf(r.out, "  %s %v reaped\n", name, id)
			continue
		}

		line := fmt.Sprintf("  %s %v %v", name, id, entry.Status)
		if entry.Result != nil {
			line += " " + entry.Result.Code
		}

		fmt.Fprintln(r.out, line)
	}

	fmt.Fprintln(r.out, "accounts:")

	for _, id := range r.ids {
		acc, err := r.accounts.Get(r.snap, id)
		if err != nil {
			return xerrors.Errorf("failed to read account: %v", err)
		}

		tokens := make([]string, 0, len(acc.Tokens))
		for token, amount := range acc.Tokens {
			tokens = append(tokens, fmt.Sprintf("%s=%d", token, amount))
		}

		sort.Strings(tokens)

		fmt.Fprintf(r.out, "  %s balance=%d tokens=[%s]\n", acc.ID, acc.Balance, strings.Join(tokens, ","))
	}

	return nil
}

// serveMetrics exposes the metrics of the engine on the address until the
// returned function is called.
func serveMetrics(addr string) (func(), error) {
	reg := prometheus.NewRegistry()

	for _, c := range delay.PromCollectors {
		err := reg.Register(c)
		if err != nil {
			return nil, xerrors.Errorf("failed to register collector: %v", err)
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, xerrors.Errorf("failed to listen on %s: %v", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Handler: mux}

	go func() {
		err := srv.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			delay.Logger.Err(err).Msg("metrics server failed")
		}
	}()

	delay.Logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	return func() { srv.Close() }, nil
}
