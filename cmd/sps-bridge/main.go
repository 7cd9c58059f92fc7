package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"sps-bridge/config"
	"sps-bridge/control"
	"sps-bridge/errors"
	"sps-bridge/log"
	"sps-bridge/relay"
	"sps-bridge/status"
	"sps-bridge/tui"
)

const Version = "1.0"

const defaultConfigPath = "configs/config.yaml"

func main() {
	flag.CommandLine.SetOutput(os.Stdout)
	configPathFlag := flag.String("config_path", defaultConfigPath, "配置文件路径（YAML）。如果是目录，则默认读取该目录下的 config.yaml；默认路径不存在时使用内置默认值并进入交互配置")
	versionFlag := flag.Bool("version", false, "输出版本并退出")
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "sps-bridge %s\n\n", Version)
		_, _ = fmt.Fprintln(os.Stdout, "用法：")
		_, _ = fmt.Fprintln(os.Stdout, "  sps-bridge [--config_path <path>] [--version] [--help]")
		_, _ = fmt.Fprintln(os.Stdout, "\n参数：")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag {
		_, _ = fmt.Fprintln(os.Stdout, Version)
		return
	}

	cfg := loadConfig(*configPathFlag)

	useTUI := tui.Qualify()
	if useTUI && cfg.Log.Output == "console" {
		// 面板接管终端后控制台日志会破坏排版，改写文件
		cfg.Log.Output = "file"
		if cfg.Log.FilePath == "" {
			cfg.Log.FilePath = "logs/sps-bridge.log"
		}
	}
	if err := log.Init(cfg.Log); err != nil {
		panic(err)
	}

	in := bufio.NewReader(os.Stdin)
	tr := openTransport(in, cfg)
	sinkWriter := setupSink(in, cfg.Sink)

	sinkDesc := status.SinkDisabled.String()
	if sinkWriter != nil {
		sinkDesc = sinkWriter.Describe()
	}

	b := relay.NewBridge(tr, cfg.Instrument.ReplyTimeout, sinkWriter, nil)

	listenAddr := net.JoinHostPort(cfg.Listen.Host, strconv.Itoa(cfg.Listen.Port))
	fmt.Printf("Starting WebSocket server on ws://%s\n", listenAddr)
	fmt.Println("Web app can now connect via the Bridge button.")
	fmt.Println()

	var panel *tui.Runner
	if useTUI {
		panel = tui.Start(tui.NewModel(listenAddr, tr.Describe(), sinkDesc, sendVia(b)))
		b.SetObserver(panel)
	}

	srv := control.NewServer(cfg.Listen, b, Version)
	if err := srv.Start(); err != nil {
		if panel != nil {
			panel.Stop()
		}
		panic(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	// 面板模式下 Ctrl-C 由面板捕获，无面板时依赖进程信号
	if panel != nil {
		select {
		case <-ctx.Done():
		case <-panel.Done():
		}
		panel.Stop()
	} else {
		<-ctx.Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if sinkWriter != nil {
		fmt.Print("Flushing InfluxDB... ")
		_ = sinkWriter.Close(shutdownCtx)
		fmt.Println("done.")
	}
	_ = tr.Close()
	fmt.Println("Bridge stopped.")
}

// loadConfig 读取配置；默认路径不存在时回落到内置默认值（走交互配置）。
func loadConfig(flagPath string) config.Config {
	path := resolveConfigPath(flagPath)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && flagPath == defaultConfigPath {
			return config.DefaultConfig()
		}
		panic(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func resolveConfigPath(p string) string {
	if p == "" {
		return defaultConfigPath
	}
	st, err := os.Stat(p)
	if err != nil {
		return p
	}
	if st.IsDir() {
		return filepath.Join(p, "config.yaml")
	}
	return p
}

// sendVia 把面板手输命令接到桥上，并把错误格式化为面板可展示的文本。
func sendVia(b *relay.Bridge) tui.SendFunc {
	kind := strings.ToUpper(b.TransportKind().String())
	return func(cmd string) string {
		resp, err := b.Send(cmd)
		if err != nil {
			if errors.Code(err) == errors.CodeTransportTimeout {
				return "(timeout)"
			}
			return fmt.Sprintf("(%s error: %v)", kind, err)
		}
		return resp
	}
}

// signalContext 创建一个可被 SIGINT/SIGTERM 取消的 Context。
// 返回：
// - ctx: 监听信号并在收到信号时取消的上下文
// - cancel: 主动取消函数
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
