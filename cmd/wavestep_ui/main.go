package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/cbegin/wavestep-go"
	"github.com/cbegin/wavestep-go/internal/audio"
	"github.com/cbegin/wavestep-go/internal/config"
	"github.com/cbegin/wavestep-go/internal/notes"
	"github.com/cbegin/wavestep-go/internal/osc"
	"github.com/cbegin/wavestep-go/internal/render"
	"github.com/cbegin/wavestep-go/internal/sequencer"
	"github.com/cbegin/wavestep-go/internal/wave"
)

const (
	windowW    = 1100
	windowH    = 720
	minWindowW = 1080
	minWindowH = 680

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	previewH = 220
	thumbW   = 200
	thumbH   = 40
	rowH     = thumbH + 8
)

var (
	bgColor       = color.RGBA{192, 192, 192, 255}
	panelColor    = color.RGBA{192, 192, 192, 255}
	borderColor   = color.RGBA{128, 128, 128, 255}
	bevelLight    = color.RGBA{255, 255, 255, 255}
	bevelDarker   = color.RGBA{64, 64, 64, 255}
	sunkenBgColor = color.RGBA{24, 24, 32, 255}

	highlightColor = color.RGBA{0, 0, 128, 255}
	playingColor   = color.RGBA{0, 96, 0, 255}
	waveColor      = color.RGBA{80, 220, 255, 255}
	thumbColor     = color.RGBA{200, 200, 120, 255}
)

var kinds = []osc.Kind{osc.Sine, osc.Square, osc.Triangle, osc.Sawtooth}

var chordNames = func() []string {
	var out []string
	for _, g := range notes.ChordGroups {
		for _, c := range g.Chords {
			out = append(out, c.Name)
		}
	}
	return out
}()

type inputMode int

const (
	inputNone inputMode = iota
	inputFreq
	inputLabel
)

type game struct {
	studio  *wavestep.Studio
	events  <-chan sequencer.Event
	output  audio.Output
	preview *render.ImageSurface
	thumbs  map[int]*render.ImageSurface
	log     *slog.Logger

	noteIdx  int
	octave   int
	kindIdx  int
	chordIdx int
	selected int

	customFreq float64 // typed frequency, used instead of the note when set
	hasCustom  bool

	mode  inputMode
	input []rune

	animCtx    context.Context
	animCancel context.CancelFunc

	listPath string

	status    string
	statusErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(cfg config.Config, listPath string, logger *slog.Logger) (*game, error) {
	out, err := audio.Open(cfg.Backend, cfg.OutputSampleRate, logger)
	if err != nil {
		return nil, err
	}
	preview := render.NewImageSurface(ebiten.NewImage(wave.PreviewLength, previewH), sunkenBgColor, waveColor)

	studioOpts := []wavestep.StudioOption{
		wavestep.WithEmitter(out),
		wavestep.WithTempo(cfg.Tempo),
		wavestep.WithLoop(cfg.Loop),
		wavestep.WithSurface(preview),
		wavestep.WithLogger(logger),
		wavestep.WithAnimationInterval(cfg.AnimationInterval),
		wavestep.WithEmitSpacing(cfg.EmitSpacing),
	}
	if cfg.BranchingRedo {
		studioOpts = append(studioOpts, wavestep.WithBranchingRedo())
	}
	studio := wavestep.NewStudio(cfg.SampleRate, studioOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	g := &game{
		studio:     studio,
		events:     studio.Watch(),
		output:     out,
		preview:    preview,
		thumbs:     make(map[int]*render.ImageSurface),
		log:        logger,
		noteIdx:    9, // A
		octave:     4,
		animCtx:    ctx,
		animCancel: cancel,
		listPath:   listPath,
		status:     "Ready",
		textCache:  make(map[string]*ebiten.Image, 256),
		viewW:      windowW,
		viewH:      windowH,
	}
	preview.Clear()
	if data, err := os.ReadFile(listPath); err == nil {
		g.importText(string(data))
	}
	return g, nil
}

func (g *game) Close() {
	g.animCancel()
	g.studio.Stop()
	g.studio.Wait()
	if err := g.output.Close(); err != nil {
		g.log.Warn("close output", "err", err)
	}
}

func (g *game) Update() error {
	g.pollEvents()
	g.handleKeys()
	g.handleMouse()
	return nil
}

func (g *game) pollEvents() {
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			if ev.Kind == sequencer.EventPlaybackEnded && !g.statusErr {
				g.status = "Playback ended"
			}
		default:
			return
		}
	}
}

func (g *game) handleKeys() {
	if g.mode != inputNone {
		g.handleInput()
		return
	}
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	pressed := inpututil.IsKeyJustPressed

	switch {
	case ctrl && pressed(ebiten.KeyZ) && shift, ctrl && pressed(ebiten.KeyY):
		g.report(g.studio.Redo(), "Redo", "Nothing to redo")
	case ctrl && pressed(ebiten.KeyZ):
		g.report(g.studio.Undo(), "Undo", "Nothing to undo")
	case ctrl && pressed(ebiten.KeyS):
		g.save()
	case ctrl && pressed(ebiten.KeyO):
		g.load()
	case ctrl:
		return
	case shift && pressed(ebiten.KeyUp):
		g.moveSelected(-1)
	case shift && pressed(ebiten.KeyDown):
		g.moveSelected(1)
	case pressed(ebiten.KeyLeft):
		g.noteIdx = (g.noteIdx + len(notes.Names) - 1) % len(notes.Names)
		g.hasCustom = false
	case pressed(ebiten.KeyRight):
		g.noteIdx = (g.noteIdx + 1) % len(notes.Names)
		g.hasCustom = false
	case pressed(ebiten.KeyUp):
		g.octave = min(8, g.octave+1)
		g.hasCustom = false
	case pressed(ebiten.KeyDown):
		g.octave = max(0, g.octave-1)
		g.hasCustom = false
	case pressed(ebiten.KeyF):
		g.beginInput(inputFreq, "")
	case pressed(ebiten.KeyR):
		if p, ok := g.selectedPlayer(); ok {
			g.beginInput(inputLabel, p.Label)
		}
	case pressed(ebiten.KeyV):
		g.check(g.studio.PlayLive())
	case pressed(ebiten.KeyB):
		if p, ok := g.selectedPlayer(); ok {
			g.check(g.studio.Audition(p.ID))
		}
	case pressed(ebiten.KeyK):
		g.kindIdx = (g.kindIdx + 1) % len(kinds)
	case pressed(ebiten.KeyBracketLeft):
		g.chordIdx = (g.chordIdx + len(chordNames) - 1) % len(chordNames)
	case pressed(ebiten.KeyBracketRight):
		g.chordIdx = (g.chordIdx + 1) % len(chordNames)
	case pressed(ebiten.KeyEnter):
		g.editNote(g.studio.Set)
	case pressed(ebiten.KeyA):
		g.editNote(g.studio.Add)
	case pressed(ebiten.KeyC) && shift:
		g.check(g.studio.AddChord(chordNames[g.chordIdx], g.octave, kinds[g.kindIdx]))
	case pressed(ebiten.KeyC):
		g.check(g.studio.SetChord(chordNames[g.chordIdx], g.octave, kinds[g.kindIdx]))
	case pressed(ebiten.KeyN):
		g.animate()
	case pressed(ebiten.KeySpace):
		g.commit()
	case pressed(ebiten.KeyP):
		g.togglePlay()
	case pressed(ebiten.KeyL):
		g.studio.SetLoop(!g.studio.Loop())
	case pressed(ebiten.KeyMinus):
		g.nudgeTempo(-5)
	case pressed(ebiten.KeyEqual):
		g.nudgeTempo(5)
	case pressed(ebiten.KeyPageUp):
		g.selected = max(0, g.selected-1)
	case pressed(ebiten.KeyPageDown):
		g.selected = min(len(g.studio.Players())-1, g.selected+1)
	case pressed(ebiten.KeyQ):
		g.nudgeSteps(-0.5)
	case pressed(ebiten.KeyW):
		g.nudgeSteps(0.5)
	case pressed(ebiten.KeyDelete), pressed(ebiten.KeyBackspace):
		g.removeSelected()
	}
}

func (g *game) handleMouse() {
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	list := g.layoutRects().list
	if !pointInRect(mx, my, list) {
		return
	}
	row := (my - list.Min.Y - 8) / rowH
	if row >= 0 && row < len(g.studio.Players()) {
		g.selected = row
	}
}

func (g *game) beginInput(mode inputMode, initial string) {
	g.mode = mode
	g.input = []rune(initial)
}

// handleInput collects typed characters until Enter applies them or Escape
// drops them.
func (g *game) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.mode = inputNone
		g.setStatus("Cancelled")
		return
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter):
		text := strings.TrimSpace(string(g.input))
		mode := g.mode
		g.mode = inputNone
		g.applyInput(mode, text)
		return
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && len(g.input) > 0:
		g.input = g.input[:len(g.input)-1]
	}
	g.input = ebiten.AppendInputChars(g.input)
}

func (g *game) applyInput(mode inputMode, text string) {
	switch mode {
	case inputFreq:
		f, err := notes.Frequency(text)
		if err != nil {
			g.setError(err.Error())
			return
		}
		if !(f >= 0) || math.IsInf(f, 0) {
			g.setError("Frequency must be a finite number >= 0")
			return
		}
		g.customFreq, g.hasCustom = f, true
		g.setStatus(fmt.Sprintf("Frequency %g Hz", f))
	case inputLabel:
		if strings.Contains(text, ",") {
			g.setError("Labels cannot contain commas")
			return
		}
		p, ok := g.selectedPlayer()
		if !ok {
			return
		}
		g.check(g.studio.SetLabel(p.ID, text))
	}
}

func (g *game) selectedPlayer() (wavestep.Player, bool) {
	ps := g.studio.Players()
	if g.selected < 0 || g.selected >= len(ps) {
		return wavestep.Player{}, false
	}
	return ps[g.selected], true
}

func (g *game) editNote(edit func(float64, osc.Kind) error) {
	if g.hasCustom {
		g.check(edit(g.customFreq, kinds[g.kindIdx]))
		return
	}
	f, ok := notes.Lookup(notes.Names[g.noteIdx], g.octave)
	if !ok {
		g.setError(fmt.Sprintf("%s%d is out of range", notes.Names[g.noteIdx], g.octave))
		return
	}
	g.check(edit(f, kinds[g.kindIdx]))
}

func (g *game) animate() {
	go func() {
		err := g.studio.Animate(g.animCtx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, wave.ErrBusy) {
			g.log.Warn("animation failed", "err", err)
		}
	}()
}

func (g *game) commit() {
	p, err := g.studio.Commit("")
	if err != nil {
		g.check(err)
		return
	}
	g.thumb(p)
	g.selected = len(g.studio.Players()) - 1
	g.setStatus("Committed " + p.Label)
}

func (g *game) thumb(p wavestep.Player) *render.ImageSurface {
	s, ok := g.thumbs[p.ID]
	if !ok {
		s = render.NewImageSurface(ebiten.NewImage(thumbW, thumbH), sunkenBgColor, thumbColor)
		wave.Draw(s, p.Samples)
		g.thumbs[p.ID] = s
	}
	return s
}

func (g *game) togglePlay() {
	if g.studio.Playing() {
		g.studio.Stop()
		g.setStatus("Stopping after this step")
		return
	}
	if !g.studio.Play() {
		g.setError("Nothing to play")
		return
	}
	g.setStatus("Playing")
}

func (g *game) nudgeTempo(delta float64) {
	g.check(g.studio.SetTempo(config.ClampTempo(g.studio.Tempo() + delta)))
}

func (g *game) nudgeSteps(delta float64) {
	p, ok := g.selectedPlayer()
	if !ok {
		return
	}
	g.check(g.studio.SetSteps(p.ID, max(0.5, p.Steps+delta)))
}

func (g *game) moveSelected(delta int) {
	to := g.selected + delta
	if err := g.studio.Move(g.selected, to); err != nil {
		g.check(err)
		return
	}
	g.selected = to
}

func (g *game) removeSelected() {
	ps := g.studio.Players()
	if g.selected < 0 || g.selected >= len(ps) {
		return
	}
	if err := g.studio.Remove(ps[g.selected].ID); err != nil {
		g.check(err)
		return
	}
	delete(g.thumbs, ps[g.selected].ID)
	g.selected = min(g.selected, len(ps)-2)
}

func (g *game) save() {
	if err := os.WriteFile(g.listPath, []byte(g.studio.Export()), 0o644); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Saved " + g.listPath)
}

func (g *game) load() {
	data, err := os.ReadFile(g.listPath)
	if err != nil {
		g.setError(err.Error())
		return
	}
	g.studio.Stop()
	g.studio.Wait()
	g.importText(string(data))
}

func (g *game) importText(text string) {
	n, err := g.studio.Import(text)
	if err != nil {
		g.setError(err.Error())
		return
	}
	clear(g.thumbs)
	g.selected = 0
	g.setStatus(fmt.Sprintf("Loaded %d players", n))
}

func (g *game) check(err error) {
	switch {
	case err == nil:
		g.setStatus("OK")
	case errors.Is(err, wave.ErrBusy):
		g.setError("Animation in progress")
	case errors.Is(err, wavestep.ErrPlaybackActive):
		g.setError("Stop playback first")
	default:
		g.setError(err.Error())
	}
}

func (g *game) report(ok bool, done, noop string) {
	if ok {
		g.setStatus(done)
		return
	}
	g.setError(noop)
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

type uiLayout struct {
	preview  image.Rectangle
	controls image.Rectangle
	list     image.Rectangle
	status   image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	const pad = 8
	w, h := g.viewW, g.viewH
	preview := image.Rect(pad, pad, pad+wave.PreviewLength+8, pad+previewH+8)
	controls := image.Rect(pad, preview.Max.Y+pad, w-pad, preview.Max.Y+pad+4*lineH+12)
	status := image.Rect(pad, h-pad-lineH-12, w-pad, h-pad)
	list := image.Rect(pad, controls.Max.Y+pad, w-pad, status.Min.Y-pad)
	return uiLayout{preview: preview, controls: controls, list: list, status: status}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawSunkenPanel(screen, l.preview)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(l.preview.Min.X+4), float64(l.preview.Min.Y+4))
	screen.DrawImage(g.preview.Image(), op)

	g.drawPanel(screen, l.controls)
	g.drawControls(screen, l.controls)
	g.drawSunkenPanel(screen, l.list)
	g.drawPlayers(screen, l.list)
	g.drawSunkenPanel(screen, l.status)
	status := g.status
	switch g.mode {
	case inputFreq:
		status = "Frequency or note: " + string(g.input) + "_"
	case inputLabel:
		status = "Label: " + string(g.input) + "_"
	}
	g.drawText(screen, status, l.status.Min.X+8, l.status.Min.Y+6)
}

func (g *game) drawControls(screen *ebiten.Image, rect image.Rectangle) {
	x, y := rect.Min.X+8, rect.Min.Y+6
	pitch := fmt.Sprintf("Note %s%d", notes.Names[g.noteIdx], g.octave)
	if g.hasCustom {
		pitch = fmt.Sprintf("Freq %g Hz", g.customFreq)
	}
	note := fmt.Sprintf("%s  Wave %s  Chord %s  Components %d",
		pitch, kinds[g.kindIdx], chordNames[g.chordIdx], len(g.studio.Components()))
	loop := "off"
	if g.studio.Loop() {
		loop = "on"
	}
	transport := fmt.Sprintf("Tempo %g BPM  Loop %s", g.studio.Tempo(), loop)
	if g.studio.Playing() {
		transport += "  Playing"
	}
	g.drawText(screen, note, x, y)
	g.drawText(screen, transport, x, y+lineH)
	g.drawText(screen, "Enter set  A add  C chord  F freq  N animate  V hear", x, y+2*lineH)
	g.drawText(screen, "Space commit  R rename  B audition  P play  L loop", x, y+3*lineH)
}

func (g *game) drawPlayers(screen *ebiten.Image, rect image.Rectangle) {
	current, playing := g.studio.Current()
	y := rect.Min.Y + 8
	for i, p := range g.studio.Players() {
		if y+rowH > rect.Max.Y {
			break
		}
		switch {
		case playing && p.ID == current:
			ebitenutil.DrawRect(screen, float64(rect.Min.X+4), float64(y-2), float64(rect.Dx()-8), rowH-4, playingColor)
		case i == g.selected:
			ebitenutil.DrawRect(screen, float64(rect.Min.X+4), float64(y-2), float64(rect.Dx()-8), rowH-4, highlightColor)
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(rect.Min.X+8), float64(y))
		screen.DrawImage(g.thumb(p).Image(), op)
		label := shortenEnd(fmt.Sprintf("%s  x%g", p.Label, p.Steps), (rect.Dx()-thumbW-24)/charW)
		g.drawText(screen, label, rect.Min.X+thumbW+16, y+(thumbH-lineH)/2)
		y += rowH
	}
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

// drawBorder draws a raised 3D bevel (highlight top/left, shadow bottom/right).
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
}

func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
	ebitenutil.DrawRect(screen, x+1, y+1, w-3, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+2, 1, h-4, bevelDarker)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		w := max(1, len([]rune(msg))*7)
		img = ebiten.NewImage(w, 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			g.textCache = make(map[string]*ebiten.Image, 256)
		}
		g.textCache[msg] = img
	}
	opS := &ebiten.DrawImageOptions{}
	opS.GeoM.Scale(textScale, textScale)
	opS.GeoM.Translate(float64(x+2), float64(y+2))
	opS.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, opS)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		listPath   = flag.String("file", "wavestep.txt", "player list loaded at start and written by ctrl+s")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	if strings.TrimSpace(*listPath) == "" {
		log.Fatal("-file must not be empty")
	}

	g, err := newGame(cfg, *listPath, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("wavestep")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
