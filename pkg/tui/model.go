package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"towerterm/pkg/config"
	"towerterm/pkg/liquidity"
	"towerterm/pkg/modal"
	"towerterm/pkg/models"
	"towerterm/pkg/watcher"
)

// Version is set by Start()
var Version = "dev"

// --- Messages ---

type clearStatusMsg struct{}

type depositDoneMsg struct {
	pool models.Pool
}

type bridgeSelectedMsg struct {
	asset models.Asset
}

type pickerClosedMsg struct{}

type slippageSavedMsg struct {
	value string
	err   error
}

// balanceReceiver is implemented by modals that re-rank or revalidate on
// fresh balances.
type balanceReceiver interface {
	SetBalances(models.Balances)
}

// Options wires the host model to its collaborators.
type Options struct {
	Watcher    *watcher.Watcher
	Config     config.Config
	Gate       *liquidity.Gate
	Version    string
	// ConfigPath is where slippage changes are persisted. Empty disables
	// saving.
	ConfigPath string
}

// --- Model ---

type model struct {
	watcher  *watcher.Watcher
	sub      watcher.Subscriber
	cfg      config.Config
	cfgPath  string
	gate     *liquidity.Gate
	modals   *modal.Stack
	pools    []models.Pool
	networks []PickerNetwork
	balances models.Balances
	failures map[string]string // source name -> last fetch error

	poolIdx     int
	bridgeAsset *models.Asset
	deposits    int

	width         int
	height        int
	loading       bool
	lastUpdate    time.Time
	spinner       spinner.Model
	statusMessage string
	showGraph     bool
	showHelp      bool
}

func initialModel(opts Options) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	gate := opts.Gate
	if gate == nil {
		gate = liquidity.NewGate(liquidity.LogSubmitter{})
	}

	m := model{
		watcher:  opts.Watcher,
		cfg:      opts.Config,
		cfgPath:  opts.ConfigPath,
		gate:     gate,
		modals:   modal.NewStack(),
		pools:    opts.Config.ResolvePools(),
		networks: pickerNetworks(opts.Config),
		balances: make(models.Balances),
		failures: make(map[string]string),
		loading:  true,
		spinner:  s,
	}
	if opts.Watcher != nil {
		m.sub = opts.Watcher.Subscribe()
		m.balances = opts.Watcher.Balances()
	}
	return m
}

func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.sub != nil {
		cmds = append(cmds, listenForWatcher(m.sub))
	}
	cmds = append(cmds, m.spinner.Tick)
	return tea.Batch(cmds...)
}
