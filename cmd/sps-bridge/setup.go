package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"sps-bridge/config"
	"sps-bridge/log"
	"sps-bridge/sink"
	"sps-bridge/transport"
)

// defaultInstrumentIP 是以太网模式下仪器 IP 的交互默认值。
const defaultInstrumentIP = "192.168.1.100"

// readLine 输出提示并读取一行，EOF 时直接退出。
func readLine(in *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, err := in.ReadString('\n')
	if err != nil {
		fmt.Println()
		os.Exit(1)
	}
	return strings.TrimSpace(line)
}

// readPassword 读取一行敏感输入；TTY 下关闭回显，重定向输入退化为普通行读取。
func readPassword(in *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			os.Exit(1)
		}
		return strings.TrimSpace(string(raw))
	}
	line, err := in.ReadString('\n')
	if err != nil {
		fmt.Println()
		os.Exit(1)
	}
	return strings.TrimSpace(line)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// promptTransport 交互选择链路类型。
// 返回：链路类型（"tcp"/"usbtmc"）与以太网模式下的仪器地址。
func promptTransport(in *bufio.Reader) (string, string) {
	fmt.Println("Select transport:")
	fmt.Println("  [1] Ethernet (TCP)")
	fmt.Println("  [2] USB (USBTMC)")
	for {
		switch readLine(in, "Choice: ") {
		case "1":
			addr := orDefault(readLine(in, fmt.Sprintf("IP address [%s]: ", defaultInstrumentIP)), defaultInstrumentIP)
			return "tcp", addr
		case "2":
			return "usbtmc", ""
		}
		fmt.Println("  Enter 1 or 2")
	}
}

// pickDevice 枚举 USBTMC 设备并让操作员选择。
// 规则：
// - 无设备时给出接线提示并退出
// - 恰好一个设备时直接采用
func pickDevice(in *bufio.Reader, pattern string) string {
	devs, err := transport.Discover(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "device discovery: %v\n", err)
		os.Exit(1)
	}
	if len(devs) == 0 {
		fmt.Printf("No USBTMC devices found at %s.\n", pattern)
		fmt.Println("Ensure the SPS5000X is connected via USB and the driver is loaded.")
		os.Exit(1)
	}
	if len(devs) == 1 {
		fmt.Printf("Found USBTMC device: %s\n", devs[0])
		return devs[0]
	}
	fmt.Println("Multiple USBTMC devices found:")
	fmt.Println()
	for i, d := range devs {
		fmt.Printf("  [%d]  %s\n", i+1, d)
	}
	fmt.Println()
	for {
		choice := readLine(in, fmt.Sprintf("Type a number [1-%d] and press Enter: ", len(devs)))
		if idx, err := strconv.Atoi(choice); err == nil && idx >= 1 && idx <= len(devs) {
			return devs[idx-1]
		}
		fmt.Printf("  Please enter a number between 1 and %d\n", len(devs))
	}
}

// printUdevHint 输出设备权限不足时的 udev 规则提示。
func printUdevHint(path string) {
	fmt.Printf("Permission denied: %s\n", path)
	fmt.Println("Add a udev rule to grant access:")
	fmt.Println(`  echo 'SUBSYSTEM=="usbmisc", KERNEL=="usbtmc*", ATTRS{idVendor}=="f4ec", MODE="0666"' \`)
	fmt.Println("    | sudo tee /etc/udev/rules.d/99-siglent-sps5000x.rules")
	fmt.Println("  sudo udevadm control --reload-rules && sudo udevadm trigger")
}

// openTransport 按配置（或交互选择）建立仪器链路，失败时打印原因并退出。
func openTransport(in *bufio.Reader, cfg config.Config) transport.Transport {
	kind := cfg.Instrument.Kind
	address := cfg.Instrument.Address
	if kind == "" {
		kind, address = promptTransport(in)
	}

	if kind == "tcp" {
		addr, err := config.ParseHostPort(orDefault(address, defaultInstrumentIP), cfg.Instrument.TCPPort)
		if err != nil {
			fmt.Fprintf(os.Stderr, "instrument address: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nConnecting to %s... ", addr)
		tr, err := transport.DialTCP(addr, cfg.Instrument.DialTimeout)
		if err != nil {
			fmt.Println("✗")
			fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", addr, err)
			os.Exit(1)
		}
		fmt.Println("✓")
		return tr
	}

	path := cfg.Instrument.Device
	if path == "" {
		path = pickDevice(in, cfg.Instrument.DeviceGlob)
	}
	fmt.Printf("Opening USBTMC device: %s\n", path)
	tr, err := transport.OpenUSBTMC(path, int(cfg.Instrument.ReadBuffer.Int64()))
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			printUdevHint(path)
		} else {
			fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
		}
		os.Exit(1)
	}
	return tr
}

// setupSink 组装时序写入端。
// 规则：
// - 配置五项齐全时跳过交互，五项全空时询问是否启用
// - 健康检查不通过则本次运行停用写入端
func setupSink(in *bufio.Reader, cfg config.SinkConfig) sink.Writer {
	if cfg.Empty() {
		if strings.ToLower(readLine(in, "\nEnable InfluxDB logging? [y/N]: ")) != "y" {
			return nil
		}
		fmt.Println()
		fmt.Println("── InfluxDB Setup ──────────────────────────────────")
		cfg.URL = orDefault(readLine(in, "URL [http://localhost:8086]: "), "http://localhost:8086")
		cfg.Org = readLine(in, "Organization: ")
		cfg.Bucket = readLine(in, "Bucket: ")
		fmt.Println("API Token")
		fmt.Println("  (Find yours at: InfluxDB UI → Load Data → API Tokens)")
		cfg.Token = readPassword(in, "  Token: ")
		cfg.Measurement = readLine(in, "Measurement name: ")
		fmt.Println("  Use snake_case, e.g. sps5000x_bench1")
		if !cfg.Complete() {
			fmt.Println("Missing required fields — InfluxDB logging disabled.")
			return nil
		}
	} else {
		fmt.Printf("\nUsing pre-configured InfluxDB: %s/%s/%s\n", cfg.Org, cfg.Bucket, cfg.Measurement)
	}

	w := sink.NewInflux(cfg)
	fmt.Print("\nTesting connection... ")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Ping(ctx); err != nil {
		fmt.Printf("✗ (%v)\n", err)
		log.With(logrus.Fields{"status": "sink_down"}).WithError(err).Warn("InfluxDB 健康检查失败，本次运行禁用时序写入")
		_ = w.Close(ctx)
		return nil
	}
	fmt.Println("✓")
	fmt.Printf("InfluxDB logging enabled → %s/%s/%s\n\n", cfg.Org, cfg.Bucket, cfg.Measurement)
	return w
}
