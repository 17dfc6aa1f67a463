package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gmflash/pcmflash/pkg/config"
	"github.com/gmflash/pcmflash/pkg/device"
	"github.com/gmflash/pcmflash/pkg/imagestore"
	"github.com/gmflash/pcmflash/pkg/kernelfile"
	"github.com/gmflash/pcmflash/pkg/logging"
	"github.com/gmflash/pcmflash/pkg/pcmsession"
	"github.com/gmflash/pcmflash/pkg/sink"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.Lmicroseconds)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "info":
		err = runInfo(ctx, args)
	case "unlock":
		err = runUnlock(ctx, args)
	case "read":
		err = runRead(ctx, args)
	case "write":
		err = runWrite(ctx, args)
	case "vin-write":
		err = runVinWrite(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pcmflash <info|unlock|read|write|vin-write> [flags]")
}

type commonFlags struct {
	configPath string
	debug      bool
}

func bindCommon(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "pcmflash.toml", "path to config file")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging")
	return c
}

func openSession(ctx context.Context, cfg config.Config, cf *commonFlags) (*pcmsession.Session, logging.Logger, *atomic.Bool, error) {
	mgr := sink.NewManager()
	console := logging.NewConsoleLogger(mgr, cf.debug)

	logFile, err := os.OpenFile("pcmflash.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	var logger logging.Logger = console
	if err == nil {
		logger = logging.Multi(console, logging.NewFileLogger(logFile))
	}

	var dev device.Device
	switch cfg.Device.Kind {
	case "usb":
		dev = device.NewUSBDevice(cfg.Device.USBVendorID, cfg.Device.USBProductID, cfg.Device.Supports4x, cfg.Device.MaxSendSize)
	default:
		dev = device.NewSerialDevice(cfg.Device.Port, cfg.Device.Supports4x, cfg.Device.MaxSendSize)
	}

	var cancelled atomic.Bool
	s, err := pcmsession.New(dev,
		pcmsession.WithLogger(logger),
		pcmsession.WithKernelFileSource(kernelfile.NewSource()),
		pcmsession.WithMinimumKernelVersion(cfg.Kernels.MinimumVersion),
		pcmsession.WithCancelSignal(cancelled.Load),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening session: %w", err)
	}
	return s, logger, &cancelled, nil
}

// runSessionOp runs op, the single session operation a subcommand
// performs, inside an errgroup.Group alongside a watcher goroutine
// that turns ctx cancellation (Ctrl+C) into the cooperative
// cancellation signal op's session checks at its suspension
// boundaries. The two goroutines never touch the device concurrently:
// the watcher only flips a flag, it never calls into the session.
func runSessionOp(ctx context.Context, cancelled *atomic.Bool, op func() error) error {
	opCtx, done := context.WithCancel(ctx)
	defer done()

	g, gctx := errgroup.WithContext(opCtx)
	g.Go(func() error {
		defer done()
		return op()
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			cancelled.Store(true)
		}
		return nil
	})
	return g.Wait()
}

func runInfo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cf := bindCommon(fs)
	fs.Parse(args)

	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return err
	}
	s, logger, cancelled, err := openSession(ctx, cfg, cf)
	if err != nil {
		return err
	}
	defer s.Close()

	var vin, serial string
	var osID, hwID, calID uint32
	err = runSessionOp(ctx, cancelled, func() error {
		resp := s.Vin()
		v, ok := resp.Value()
		if !ok {
			return fmt.Errorf("VIN: %s", resp.Message())
		}
		vin = v

		resp = s.SerialNumber()
		v, ok = resp.Value()
		if !ok {
			return fmt.Errorf("serial: %s", resp.Message())
		}
		serial = v

		if v, ok := s.OsId().Value(); ok {
			osID = v
		}
		if v, ok := s.HwId().Value(); ok {
			hwID = v
		}
		if v, ok := s.CalId().Value(); ok {
			calID = v
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.User(fmt.Sprintf("VIN: %s", vin))
	logger.User(fmt.Sprintf("Serial: %s", serial))
	logger.User(fmt.Sprintf("OS: %08X  HW: %08X  CAL: %08X", osID, hwID, calID))
	return nil
}

func runUnlock(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("unlock", flag.ExitOnError)
	cf := bindCommon(fs)
	fs.Parse(args)

	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return err
	}
	s, logger, cancelled, err := openSession(ctx, cfg, cf)
	if err != nil {
		return err
	}
	defer s.Close()

	err = runSessionOp(ctx, cancelled, func() error {
		resp := s.Unlock()
		if !resp.IsSuccess() {
			return fmt.Errorf("%s", resp.Error())
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.User("unlocked")
	return nil
}

func runRead(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	cf := bindCommon(fs)
	out := fs.String("out", "", "output file (.bin or .zip)")
	base := fs.Uint("base", 0, "image base address")
	size := fs.Uint("size", 0, "image size in bytes")
	password := fs.String("password", "", "zip password; when set, the image is saved as an AES-encrypted zip whatever the -out extension")
	fs.Parse(args)

	if *out == "" || *size == 0 {
		return fmt.Errorf("-out and -size are required")
	}

	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return err
	}
	s, logger, cancelled, err := openSession(ctx, cfg, cf)
	if err != nil {
		return err
	}
	defer s.Close()

	var image []byte
	err = runSessionOp(ctx, cancelled, func() error {
		if resp := s.Unlock(); !resp.IsSuccess() {
			return fmt.Errorf("unlock: %s", resp.Error())
		}
		if resp := s.NegotiateFourX(); !resp.IsSuccess() {
			logger.Debug("4x negotiation refused, continuing at 1x")
		}
		if resp := s.EnsureReadKernel(cfg.Kernels.ReadKernel, cfg.Kernels.BaseAddress); !resp.IsSuccess() {
			return fmt.Errorf("loading read kernel: %s", resp.Error())
		}

		info := pcmsession.ImageInfo{ImageBase: uint32(*base), ImageSize: uint32(*size)}
		resp := s.ReadContents(info, func(read, total uint32) {
			logger.Debug(fmt.Sprintf("read %d/%d bytes", read, total))
		})
		img, ok := resp.Value()
		if !ok {
			return fmt.Errorf("%s", resp.Error())
		}
		image = img
		return nil
	})
	if err != nil {
		return err
	}

	if *password != "" {
		if err := imagestore.SaveEncryptedZip(*out, "image.bin", image, *password); err != nil {
			return err
		}
	} else if err := imagestore.SaveRaw(*out, image); err != nil {
		return err
	}
	logger.User(fmt.Sprintf("saved %d bytes to %s", len(image), *out))
	return nil
}

func runWrite(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	cf := bindCommon(fs)
	in := fs.String("in", "", "input flash image")
	fs.Parse(args)

	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return err
	}
	s, logger, cancelled, err := openSession(ctx, cfg, cf)
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	err = runSessionOp(ctx, cancelled, func() error {
		if resp := s.Unlock(); !resp.IsSuccess() {
			return fmt.Errorf("unlock: %s", resp.Error())
		}
		if resp := s.WriteFull(cfg.Kernels.WriteKernel, cfg.Kernels.BaseAddress, f); !resp.IsSuccess() {
			return fmt.Errorf("%s", resp.Error())
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.User(fmt.Sprintf("write complete in %s", time.Since(start).Round(time.Second)))
	return nil
}

func runVinWrite(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vin-write", flag.ExitOnError)
	cf := bindCommon(fs)
	vin := fs.String("vin", "", "17-character VIN")
	fs.Parse(args)

	if len(*vin) != 17 {
		return fmt.Errorf("-vin must be exactly 17 characters")
	}

	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return err
	}
	s, logger, cancelled, err := openSession(ctx, cfg, cf)
	if err != nil {
		return err
	}
	defer s.Close()

	err = runSessionOp(ctx, cancelled, func() error {
		if resp := s.Unlock(); !resp.IsSuccess() {
			return fmt.Errorf("unlock: %s", resp.Error())
		}
		if resp := s.WriteVin(*vin); !resp.IsSuccess() {
			return fmt.Errorf("%s", resp.Error())
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.User("VIN written")
	return nil
}
