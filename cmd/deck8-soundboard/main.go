package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/yok-tottii/deck8-soundboard/internal/api"
	"github.com/yok-tottii/deck8-soundboard/internal/audio"
	"github.com/yok-tottii/deck8-soundboard/internal/config"
	"github.com/yok-tottii/deck8-soundboard/internal/dispatch"
	"github.com/yok-tottii/deck8-soundboard/internal/hotkey"
	"github.com/yok-tottii/deck8-soundboard/internal/i18n"
	"github.com/yok-tottii/deck8-soundboard/internal/library"
	"github.com/yok-tottii/deck8-soundboard/internal/logger"
	"github.com/yok-tottii/deck8-soundboard/internal/notification"
	"github.com/yok-tottii/deck8-soundboard/internal/permissions"
	"github.com/yok-tottii/deck8-soundboard/internal/server"
	"github.com/yok-tottii/deck8-soundboard/internal/soundboard"
	"github.com/yok-tottii/deck8-soundboard/internal/tray"
	"github.com/yok-tottii/deck8-soundboard/internal/wizard"
)

const (
	appName = "Deck8 Soundboard"
	version = "0.1.0"
)

// App holds all application state
type App struct {
	logger     *logger.Logger
	config     *config.Config
	configPath string
	audioHost  *audio.PortAudioHost
	audioMgr   *audio.Manager
	board      *soundboard.Board
	trayMgr    *tray.Manager
	httpServer *server.Server
	apiHandler *api.Handler
	hotkeyMgr  *hotkey.Manager
	dispatcher *dispatch.Dispatcher
	notifier   *notification.NotificationManager
	wizard     *wizard.SetupWizard
	showSetup  bool

	// bindings is the last set that registered
	bindings [config.KeyCount]config.HotkeyConfig
	quitOnce sync.Once
}

func init() {
	// Cocoa calls made by systray and hotkey must run on the main thread
	runtime.LockOSThread()
}

func main() {
	app := &App{}

	var err error
	app.logger, err = logger.New(logger.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer app.logger.Close()

	app.logger.Info("%s v%s starting", appName, version)

	app.configPath = config.GetConfigPath()
	app.config, err = config.Load(app.configPath)
	if err != nil {
		app.logger.Error("Failed to load config: %v", err)
		log.Fatalf("Failed to load config: %v", err)
	}
	app.logger.Info("Loaded config: %s", app.configPath)

	if level, err := logger.ParseLevel(app.config.LogLevel); err != nil {
		app.logger.Warn("Ignoring log_level: %v", err)
	} else {
		app.logger.SetLevel(level)
	}

	app.notifier = notification.NewNotificationManager(appName)

	app.audioHost, err = audio.NewPortAudioHost(audio.LowLatency)
	if err != nil {
		app.logger.Error("Failed to initialize audio: %v", err)
		log.Fatalf("Failed to initialize audio: %v", err)
	}
	defer app.audioHost.Close()
	app.audioMgr = audio.NewManager(app.audioHost, app.logger)

	soundsDir, err := library.DefaultDir()
	if err != nil {
		log.Fatalf("Failed to resolve sounds directory: %v", err)
	}
	store, err := library.NewStore(soundsDir, app.audioMgr.Monitor(), app.logger)
	if err != nil {
		app.logger.Error("Failed to open sound library: %v", err)
		log.Fatalf("Failed to open sound library: %v", err)
	}
	app.logger.Info("Sound library: %s", store.Dir())

	app.wizard, err = wizard.NewSetupWizard(app.configPath)
	if err != nil {
		app.logger.Error("Setup wizard: %v", err)
	} else {
		app.showSetup = app.wizard.ShouldShowWizard()
	}

	app.board = soundboard.New(app.config, app.configPath, store, app.audioMgr, app.logger)
	// Write the file once so migrated or default settings are on disk
	if err := app.board.SaveConfig(); err != nil {
		app.logger.Warn("Failed to write config: %v", err)
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = app.config.ServerPort
	app.httpServer = server.New(serverConfig, app.logger)
	app.apiHandler = api.New(app.board, app.ReloadHotkeys, app.logger)
	app.apiHandler.RegisterRoutes(app.httpServer.GetMux())
	app.logger.Info("API routes registered")

	app.trayMgr = tray.NewManager(tray.Config{
		OnReady:        app.onReady,
		OnSettings:     app.handleOpenSettings,
		OnToggle:       app.handleToggle,
		OnInputDevice:  app.handleInputDevice,
		OnOutputDevice: app.handleOutputDevice,
		OnQuit:         app.handleQuit,
		Translator:     i18n.NewTranslator(i18n.DetectSystemLanguage()),
	})
	app.board.OnStateChange(func(running bool) {
		if running {
			app.trayMgr.SetState(tray.StateRunning)
			app.completeSetup()
		} else {
			app.trayMgr.SetState(tray.StateStopped)
		}
	})

	app.logger.Info("Starting system tray")

	// Blocks until Quit
	app.trayMgr.Run()
}

// onReady runs once the tray is up
func (a *App) onReady() {
	a.logger.Info("System tray ready")

	perms := permissions.NewPermissionChecker()
	if status := perms.CheckMicrophonePermission(); perms.IsMicrophoneAuthorized() {
		a.logger.Info("Microphone permission: %s", status)
	} else {
		a.logger.Warn("Microphone permission: %s", status)
		a.notify(a.notifier.MicrophonePermissionDenied())
		if err := perms.RequestMicrophonePermission(); err != nil {
			a.logger.Warn("Failed to open privacy settings: %v", err)
		}
	}

	a.refreshDeviceMenus()

	if a.config.AutoStart {
		if !a.board.AutoStart() {
			if _, output := a.config.Devices(); output != "" && !audio.IsVirtualCable(output) {
				a.notify(a.notifier.NotVirtualCable(output))
			}
		}
	}

	a.hotkeyMgr = hotkey.New(a.logger)
	a.dispatcher = dispatch.New(a.hotkeyMgr, a.board.TriggerKey, dispatch.DefaultConfig(), a.logger)
	if err := a.registerHotkeys(a.config.Bindings()); err != nil {
		a.logger.Error("Hotkey registration: %v", err)
		a.notify(a.notifier.HotkeysFailed(err.Error()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("Failed to start HTTP server: %v", err)
		a.trayMgr.SetState(tray.StateError)
	}

	if a.showSetup {
		a.logger.Info("Setup not completed (%+v), opening settings", wizard.GetProgress(a.config))
		a.handleOpenSettings()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		a.logger.Info("Received shutdown signal")
		a.handleQuit()
		a.trayMgr.Quit()
	}()

	fmt.Println("\n" + "==========================================================")
	fmt.Printf("[start] %s v%s\n", appName, version)
	fmt.Println("==========================================================")
	fmt.Printf("[settings] %s\n", a.httpServer.URL())
	for i, b := range a.config.Bindings() {
		if binding, err := hotkey.BindingFor(b); err == nil {
			fmt.Printf("[key %d] %s\n", i+1, hotkey.FormatBinding(binding))
		}
	}
	fmt.Printf("[quit] Ctrl+C or Quit in the tray menu\n")
	fmt.Println("==========================================================" + "\n")
}

// registerHotkeys registers cfgs and (re)starts the dispatcher. A partial
// registration still starts the dispatcher for the keys that did register.
func (a *App) registerHotkeys(cfgs [config.KeyCount]config.HotkeyConfig) error {
	bindings, err := hotkey.FromConfig(cfgs)
	if err != nil {
		return err
	}

	regErr := a.hotkeyMgr.Register(bindings)
	if !a.hotkeyMgr.IsRunning() {
		return regErr
	}
	if err := a.dispatcher.Start(); err != nil {
		return err
	}
	a.bindings = cfgs
	a.logger.Info("Hotkeys active for keys %v", oneBased(a.hotkeyMgr.Active()))
	return regErr
}

// ReloadHotkeys re-registers the shortcuts from the live config, rolling
// back to the previous set when the new one cannot be registered at all
func (a *App) ReloadHotkeys() error {
	a.logger.Info("Hotkey reload requested")

	if a.hotkeyMgr == nil {
		return fmt.Errorf("hotkey manager not initialized")
	}

	a.dispatcher.Stop()
	if err := a.hotkeyMgr.Close(); err != nil {
		a.logger.Warn("Failed to release old hotkeys: %v", err)
	}

	previous := a.bindings
	err := a.registerHotkeys(a.config.Bindings())
	if err == nil {
		return nil
	}
	if a.hotkeyMgr.IsRunning() {
		// Partial registration: keep what registered
		a.notify(a.notifier.HotkeysFailed(err.Error()))
		return err
	}

	a.logger.Warn("Rolling back hotkeys: %v", err)
	if rollbackErr := a.registerHotkeys(previous); rollbackErr != nil && !a.hotkeyMgr.IsRunning() {
		a.logger.Error("Hotkey rollback failed: %v", rollbackErr)
		a.notify(a.notifier.HotkeysFailed("restart the application"))
		return fmt.Errorf("failed to register hotkeys: %w, rollback error: %v", err, rollbackErr)
	}
	return fmt.Errorf("failed to register hotkeys: %w", err)
}

// completeSetup records that the pipeline has run once
func (a *App) completeSetup() {
	if a.wizard == nil || a.wizard.IsSetupCompleted() {
		return
	}
	if err := a.wizard.MarkSetupCompleted(); err != nil {
		a.logger.Warn("Failed to record setup completion: %v", err)
		return
	}
	a.logger.Info("Setup completed")
}

func oneBased(slots []int) []int {
	keys := make([]int, len(slots))
	for i, s := range slots {
		keys[i] = s + 1
	}
	return keys
}

func (a *App) refreshDeviceMenus() {
	devices, err := a.board.ListDevices()
	if err != nil {
		a.logger.Error("Failed to list audio devices: %v", err)
		return
	}
	input, output := a.config.Devices()
	a.trayMgr.UpdateDeviceMenus(
		tray.DeviceEntries(devices.InputDevices, input),
		tray.DeviceEntries(devices.OutputDevices, output),
	)
}

func (a *App) handleInputDevice(name string) {
	a.logger.Info("Input device selected: %s", name)
	a.board.SetInputDevice(name)
	a.refreshDeviceMenus()
}

func (a *App) handleOutputDevice(name string) {
	a.logger.Info("Output device selected: %s", name)
	a.board.SetOutputDevice(name)
	if !audio.IsVirtualCable(name) {
		a.notify(a.notifier.NotVirtualCable(name))
	}
	a.refreshDeviceMenus()
}

// handleToggle starts or stops the pipeline from the tray
func (a *App) handleToggle() {
	if a.board.Status().Running {
		if err := a.board.StopPipeline(); err != nil {
			a.logger.Warn("Pipeline did not stop cleanly: %v", err)
		}
		return
	}
	if err := a.board.StartPipeline(); err != nil {
		a.logger.Error("Failed to start pipeline: %v", err)
		a.trayMgr.SetState(tray.StateError)
		a.notify(a.notifier.PipelineFailed(err.Error()))
	}
}

// handleOpenSettings opens the settings page in the default browser
func (a *App) handleOpenSettings() {
	if !a.httpServer.IsRunning() {
		a.logger.Error("HTTP server is not running")
		return
	}

	url := a.httpServer.URL()
	a.logger.Info("Opening browser: %s", url)

	go func() {
		if err := openBrowser(url); err != nil {
			a.logger.Error("Failed to open browser: %v", err)
			fmt.Printf("\n[warn] Could not open a browser\n")
			fmt.Printf("[settings] %s\n\n", url)
		}
	}()
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Run()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Run()
	default:
		return exec.Command("xdg-open", url).Run()
	}
}

// notify logs a notification that could not be shown
func (a *App) notify(err error) {
	if err != nil {
		a.logger.Debug("Notification not shown: %v", err)
	}
}

// handleQuit releases hotkeys, the HTTP server and the audio pipeline
func (a *App) handleQuit() {
	a.quitOnce.Do(a.shutdown)
}

func (a *App) shutdown() {
	a.logger.Info("Quit requested")

	if a.httpServer != nil && a.httpServer.IsRunning() {
		if err := a.httpServer.Stop(); err != nil {
			a.logger.Error("Failed to stop HTTP server: %v", err)
		}
	}

	if a.dispatcher != nil {
		a.dispatcher.Stop()
		a.logger.Info("Dispatched %d key presses (%d failed)", a.dispatcher.Triggered(), a.dispatcher.Failed())
	}

	if a.hotkeyMgr != nil {
		if err := a.hotkeyMgr.Close(); err != nil {
			a.logger.Warn("Failed to release hotkeys: %v", err)
		}
	}

	// Close leaves soundboard_enabled as it is
	if err := a.board.Close(); err != nil {
		a.logger.Warn("Pipeline did not stop cleanly: %v", err)
	}

	a.logger.Info("Shutdown complete")
}
