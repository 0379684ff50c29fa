package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"pkt.systems/mdast"
	"pkt.systems/mdast/render/html"
	mdterm "pkt.systems/mdast/render/term"
	"pkt.systems/version"
)

const (
	defaultThemeName = "default"
	defaultWidth     = 80
	envPrefix        = "MDAST"
)

func init() {
	version.SetDefaultModule("pkt.systems/mdast")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("mdast", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringP("format", "f", "ansi", "Output format: tree|json|html|ansi")
	flags.StringP("theme", "t", defaultThemeName, "Theme name")
	flags.IntP("width", "w", 0, "Output width override (0 uses terminal width if available)")
	flags.StringP("osc8", "8", "auto", "OSC8 hyperlinks: auto|on|off")
	flags.Bool("list-themes", false, "List available themes")
	flags.StringP("output", "o", "", "Output file instead of stdout")
	flags.BoolP("boring", "b", false, "Generate non-ANSI output")
	flags.Bool("no-ext", false, "Parse plain CommonMark without extensions")
	flags.StringSlice("ext", nil, "Enable only these extensions (comma separated)")
	flags.Bool("safe", false, "Omit raw HTML and unsafe links from html output")
	flags.Bool("diagnostics", false, "Report parse diagnostics on stderr")
	flags.String("log-level", "warn", "Log level: debug|info|warn|error")
	flags.String("config", "", "Config file (default $XDG_CONFIG_HOME/mdast/config.yaml)")
	flags.Bool("version", false, "Print version and exit")
	flags.SetInterspersed(true)
	flags.Usage = func() {
		fmt.Fprintln(stderr, version.Module(), version.Current())
		fmt.Fprintf(stderr, "Usage: mdast [flags] [inputs...]\n")
		fmt.Fprintln(stderr, "\nInputs are files, file:// or http(s):// URLs. If no input is provided, Markdown is read from stdin.")
		fmt.Fprintln(stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	v, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}

	if v.GetBool("version") {
		fmt.Fprintln(stdout, version.Module(), version.Current())
		return 0
	}
	if v.GetBool("list-themes") {
		printThemes(stdout)
		return 0
	}

	logger, err := newLogger(stderr, v.GetString("log-level"))
	if err != nil {
		fmt.Fprintf(stderr, "invalid --log-level: %v\n", err)
		return 2
	}

	opts, err := parseOptions(v, logger)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	doc, err := parseInputs(flags.Args(), stdin, opts)
	if err != nil {
		logger.WithError(err).Error("parse input")
		return 1
	}
	if v.GetBool("diagnostics") {
		for _, d := range doc.Diagnostics {
			logger.WithFields(logrus.Fields{"kind": d.Kind.String(), "line": d.Line}).Warn(d.Message)
		}
	}

	writer, closeOut, err := resolveOutput(v.GetString("output"), stdout)
	if err != nil {
		logger.WithError(err).Error("open output")
		return 1
	}
	if closeOut != nil {
		defer func() { _ = closeOut.Close() }()
	}

	if err := write(writer, doc, v); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
		logger.WithError(err).Error("render")
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

func write(w io.Writer, doc *mdast.Document, v *viper.Viper) error {
	switch format := strings.ToLower(v.GetString("format")); format {
	case "tree":
		return doc.Tree.Dump(w, doc.Tree.Root())
	case "json":
		return writeJSON(w, doc)
	case "html":
		return html.Render(html.RenderRequest{
			Document: doc,
			Writer:   w,
			Options:  []html.Option{html.WithSafe(v.GetBool("safe")), html.WithHeadingIDs(true)},
		})
	case "ansi", "":
		theme, ok := mdterm.ThemeByName(v.GetString("theme"))
		if !ok {
			return fmt.Errorf("%w: unknown theme %q (see --list-themes)", errUsage, v.GetString("theme"))
		}
		if v.GetBool("boring") {
			theme = mdterm.BoringTheme()
		}
		osc8, err := resolveOSC8(v.GetString("osc8"), w)
		if err != nil {
			return fmt.Errorf("%w: invalid --osc8 %q: %v", errUsage, v.GetString("osc8"), err)
		}
		return mdterm.Render(mdterm.RenderRequest{
			Document: doc,
			Writer:   w,
			Width:    resolveWidth(v.GetInt("width")),
			Theme:    theme,
			Options:  []mdterm.Option{mdterm.WithOSC8(osc8 && !v.GetBool("boring")), mdterm.WithSoftWrap(true)},
		})
	default:
		return fmt.Errorf("%w: unknown format %q", errUsage, format)
	}
}

// loadConfig layers flags over MDAST_* environment variables over the
// config file.
func loadConfig(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(normalizePath(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		return v, nil
	}
	dir, err := configDir()
	if err != nil {
		return v, nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return v, nil
}

func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mdast"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mdast"), nil
}

func newLogger(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger, nil
}

func parseOptions(v *viper.Viper, logger logrus.FieldLogger) ([]mdast.Option, error) {
	opts := []mdast.Option{mdast.WithRejectBinary(true), mdast.WithLogger(logger)}
	if v.GetBool("no-ext") {
		return append(opts, mdast.WithExtensions(mdast.ExtNone)), nil
	}
	names := v.GetStringSlice("ext")
	if len(names) == 0 {
		return opts, nil
	}
	ext := mdast.ExtNone
	for _, name := range names {
		e, ok := mdast.ExtensionByName(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown extension %q (known: %s)", name, strings.Join(mdast.ExtensionNames(), ", "))
		}
		ext |= e
	}
	return append(opts, mdast.WithExtensions(ext)), nil
}

// parseInputs parses stdin, a single URL, or the concatenation of inputs.
func parseInputs(args []string, stdin io.Reader, opts []mdast.Option) (*mdast.Document, error) {
	if len(args) == 1 && isHTTP(args[0]) {
		return mdast.ParseURL(context.Background(), mdast.URLParseRequest{URL: strings.TrimSpace(args[0]), Options: opts})
	}
	reader, closer, err := openInputs(args, stdin)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	return mdast.Parse(mdast.ParseRequest{Reader: reader, Options: opts})
}

func isHTTP(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func printThemes(w io.Writer) {
	for _, name := range mdterm.AvailableThemes() {
		fmt.Fprintln(w, name)
	}
}

func resolveWidth(width int) int {
	if width > 0 {
		return width
	}
	return terminalWidth(defaultWidth)
}

func terminalWidth(fallback int) int {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	if value := os.Getenv("COLUMNS"); value != "" {
		if w, err := strconv.Atoi(value); err == nil && w > 0 {
			return w
		}
	}
	return fallback
}

// resolveOSC8 maps the --osc8 flag to a setting. auto enables hyperlinks
// only on a terminal that is known to support them.
func resolveOSC8(mode string, w io.Writer) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return isTerminal(w) && mdterm.DetectOSC8Support(), nil
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected auto|on|off")
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

type inputSource struct {
	open func() (io.Reader, io.Closer, error)
}

// multiInputReader reads its sources one after another, opening each on
// first use.
type multiInputReader struct {
	sources   []inputSource
	idx       int
	cur       io.Reader
	curCloser io.Closer
	closed    bool
}

func (m *multiInputReader) Read(p []byte) (int, error) {
	for {
		if m.closed {
			return 0, io.EOF
		}
		if m.cur == nil {
			if m.idx >= len(m.sources) {
				m.closed = true
				return 0, io.EOF
			}
			reader, closer, err := m.sources[m.idx].open()
			if err != nil {
				return 0, err
			}
			m.cur, m.curCloser = reader, closer
			m.idx++
		}
		n, err := m.cur.Read(p)
		if n > 0 {
			return n, nil
		}
		if err == io.EOF {
			if m.curCloser != nil {
				_ = m.curCloser.Close()
			}
			m.cur, m.curCloser = nil, nil
			continue
		}
		if err != nil {
			return 0, err
		}
	}
}

func (m *multiInputReader) Close() error {
	m.closed = true
	if m.curCloser != nil {
		return m.curCloser.Close()
	}
	return nil
}

func openInputs(args []string, stdin io.Reader) (io.Reader, io.Closer, error) {
	if len(args) == 0 {
		return stdin, nil, nil
	}
	sources := make([]inputSource, 0, len(args))
	for _, raw := range args {
		src, err := makeInputSource(raw)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}
	m := &multiInputReader{sources: sources}
	return m, m, nil
}

func makeInputSource(raw string) (inputSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return inputSource{}, fmt.Errorf("empty input argument")
	}
	if raw == "-" {
		return inputSource{open: func() (io.Reader, io.Closer, error) {
			return os.Stdin, nil, nil
		}}, nil
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return inputSource{open: func() (io.Reader, io.Closer, error) {
				return openURL(raw)
			}}, nil
		case "file":
			path := u.Path
			if path == "" {
				path = u.Host
			}
			if unescaped, err := url.PathUnescape(path); err == nil {
				path = unescaped
			}
			return inputSource{open: func() (io.Reader, io.Closer, error) {
				return openFile(path)
			}}, nil
		}
	}
	return inputSource{open: func() (io.Reader, io.Closer, error) {
		return openFile(raw)
	}}, nil
}

func openURL(raw string) (io.Reader, io.Closer, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, raw, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("http %s: %s", raw, resp.Status)
	}
	return resp.Body, resp.Body, nil
}

func openFile(path string) (io.Reader, io.Closer, error) {
	f, err := os.Open(normalizePath(path))
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func resolveOutput(path string, stdout io.Writer) (io.Writer, io.Closer, error) {
	if strings.TrimSpace(path) == "" {
		return stdout, nil, nil
	}
	clean := normalizePath(path)
	if dir := filepath.Dir(clean); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			if path == "~" {
				path = home
			} else {
				path = filepath.Join(home, path[2:])
			}
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
