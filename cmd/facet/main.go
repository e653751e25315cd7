// facet - Terminal 3D Model Viewer
// View GLB/GLTF files in your terminal with full 3D rendering.
//
// Controls:
//
//	Mouse drag  - Rotate model (yaw/pitch)
//	Scroll      - Zoom in/out
//	W/S         - Pitch up/down
//	A/D         - Yaw left/right
//	Q/E         - Roll left/right (Q rolls left, E rolls right)
//	Space       - Apply random impulse
//	R           - Reset rotation
//	T           - Toggle texture on/off
//	X           - Toggle wireframe mode (x-ray)
//	L           - Light positioning mode (move mouse, click to set, Esc to cancel)
//	P           - Save a PNG snapshot of the current frame
//	?           - Toggle HUD overlay (FPS, filename, poly count, mode status)
//	+/-         - Adjust zoom
//	Esc         - Quit (or cancel light mode)
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/models"
	"github.com/taigrr/facet/pkg/render"
)

var (
	texturePath = flag.String("texture", "", "Path to texture image (PNG/JPG), overrides embedded textures")
	targetFPS   = flag.Int("fps", 60, "Target FPS")
	bgColor     = flag.String("bg", "30,30,40", "Background color (R,G,B)")
	orthoView   = flag.Bool("ortho", false, "Use an orthographic projection")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "facet - Terminal 3D Model Viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: facet [options] [model.glb|model.gltf]\n\n")
		fmt.Fprintf(os.Stderr, "Without a model argument a built-in cube is shown.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Rotate model\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Pitch and yaw\n")
		fmt.Fprintf(os.Stderr, "  Q/E         - Roll left/right\n")
		fmt.Fprintf(os.Stderr, "  Space       - Random spin\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  T           - Toggle texture\n")
		fmt.Fprintf(os.Stderr, "  X           - Toggle wireframe\n")
		fmt.Fprintf(os.Stderr, "  L           - Position light (mouse to aim, click to set)\n")
		fmt.Fprintf(os.Stderr, "  P           - Save a PNG snapshot\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD overlay\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	// with no model argument a built-in cube is shown
	modelPath := ""
	if flag.NArg() > 0 {
		modelPath = flag.Arg(0)
	}

	if err := run(modelPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// RotationAxis tracks position and velocity for one rotation axis with spring decay
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewRotationAxis creates an axis with harmonica spring for smooth velocity decay
func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0 using spring
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// RotationState holds rotation with harmonica spring physics
type RotationState struct {
	Pitch, Yaw, Roll RotationAxis
	fps              int
}

func NewRotationState(fps int) *RotationState {
	return &RotationState{
		Pitch: NewRotationAxis(fps),
		Yaw:   NewRotationAxis(fps),
		Roll:  NewRotationAxis(fps),
		fps:   fps,
	}
}

func (r *RotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
	r.Roll.Update()
}

func (r *RotationState) ApplyImpulse(pitch, yaw, roll float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
	r.Roll.Velocity += roll
}

func (r *RotationState) Reset() {
	r.Pitch = NewRotationAxis(r.fps)
	r.Yaw = NewRotationAxis(r.fps)
	r.Roll = NewRotationAxis(r.fps)
}

// RenderMode controls how the mesh is drawn
type RenderMode int

const (
	RenderModeTextured  RenderMode = iota // Textured with Gouraud shading
	RenderModeFlat                        // Gouraud shading, no texture
	RenderModeWireframe                   // Wireframe only
)

// ViewState holds all view-related settings (UI state, not library code)
type ViewState struct {
	TextureEnabled bool        // Whether to show textures
	RenderMode     RenderMode  // Current render mode
	LightMode      bool        // Whether in light positioning mode
	LightPos       math3d.Vec3 // Current light position on the view hemisphere
	PendingLight   math3d.Vec3 // Light position while positioning
	ShowHUD        bool        // Whether to show the HUD overlay
}

// NewViewState creates default view state
func NewViewState() *ViewState {
	return &ViewState{
		TextureEnabled: true,
		RenderMode:     RenderModeTextured,
		LightPos:       math3d.V3(0.5, 1, 0.3).Normalize(),
	}
}

// HUD renders an overlay with model info and controls
type HUD struct {
	filename  string
	polyCount int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

// NewHUD creates a new HUD
func NewHUD(filename string, polyCount int) *HUD {
	return &HUD{
		filename:  filename,
		polyCount: polyCount,
		fpsTime:   time.Now(),
	}
}

// UpdateFPS updates the FPS counter (call once per frame)
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Render draws the HUD overlay directly to the terminal
func (h *HUD) Render(width, height int, viewState *ViewState, stats render.Stats) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		dim       = "\x1b[2m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgYellow  = "\x1b[93m"
		fgCyan    = "\x1b[96m"
		clearLine = "\x1b[2K"
	)

	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	// Always clear the HUD rows (so toggling off works)
	fmt.Print(moveTo(1, 1) + clearLine)
	fmt.Print(moveTo(height, 1) + clearLine)

	// Light mode always shows its indicator
	if viewState.LightMode {
		lightMsg := fmt.Sprintf("%s%s%s ◉ LIGHT MODE - Move mouse to position, click to set, Esc to cancel %s",
			bgBlack, bold, fgYellow, reset)
		lightCol := max((width-60)/2, 1)
		fmt.Print(moveTo(height, lightCol) + lightMsg)
		return
	}

	if !viewState.ShowHUD {
		return
	}

	// Top left: FPS and triangle throughput
	fpsStr := fmt.Sprintf("%s%s%s %.0f FPS | %d drawn %d culled %s",
		moveTo(1, 1), bgBlack, fgGreen, h.fps, stats.TrianglesDrawn, stats.TrianglesCulled, reset)
	fmt.Print(fpsStr)

	// Top middle: filename
	titleStr := fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.filename, reset)
	titleCol := max((width-len(h.filename)-2)/2, 1)
	fmt.Print(moveTo(1, titleCol) + titleStr)

	// Top right: polygon count
	polyStr := fmt.Sprintf("%s%s%s %d polys %s", bgBlack, fgCyan, bold, h.polyCount, reset)
	polyCol := max(width-12, 1)
	fmt.Print(moveTo(1, polyCol) + polyStr)

	checkTex := "[ ]"
	if viewState.TextureEnabled && viewState.RenderMode != RenderModeWireframe {
		checkTex = "[✓]"
	}
	checkWire := "[ ]"
	if viewState.RenderMode == RenderModeWireframe {
		checkWire = "[✓]"
	}

	// Bottom: mode checkboxes and hint
	modeStr := fmt.Sprintf("%s%s %s Texture  %s X-Ray (wireframe) %s",
		bgBlack, fgWhite, checkTex, checkWire, reset)
	fmt.Print(moveTo(height, 1) + modeStr)

	hint := fmt.Sprintf("%s%s%s L: position light %s", bgBlack, dim, fgYellow, reset)
	hintCol := max(width-18, 1)
	fmt.Print(moveTo(height, hintCol) + hint)
}

// ScreenToLightPos converts a screen position to a point on the
// hemisphere facing the camera, used as the light's location.
func ScreenToLightPos(screenX, screenY, width, height int) math3d.Vec3 {
	nx := (float64(screenX)/float64(width))*2 - 1
	ny := (float64(screenY)/float64(height))*2 - 1

	lenSq := nx*nx + ny*ny
	if lenSq > 1 {
		l := math.Sqrt(lenSq)
		nx /= l
		ny /= l
		lenSq = 1
	}
	nz := math.Sqrt(1 - lenSq)

	return math3d.V3(nx, -ny, nz).Normalize()
}

// builtinCube builds a unit checker-textured cube shown when no model
// file is given.
func builtinCube() (*render.Mesh, error) {
	tex, err := render.NewCheckerTexture(64, 64, 8, render.RGB(220, 220, 220), render.RGB(90, 90, 120))
	if err != nil {
		return nil, err
	}

	m := &render.Mesh{Texture: tex}
	m.DefaultMaterial()

	// six faces, four vertices each, outward normals and full UV tiles
	faces := [6]struct {
		n          math3d.Vec3
		a, b, c, d math3d.Vec3
	}{
		{math3d.V3(0, 0, 1), math3d.V3(-1, -1, 1), math3d.V3(1, -1, 1), math3d.V3(1, 1, 1), math3d.V3(-1, 1, 1)},
		{math3d.V3(0, 0, -1), math3d.V3(1, -1, -1), math3d.V3(-1, -1, -1), math3d.V3(-1, 1, -1), math3d.V3(1, 1, -1)},
		{math3d.V3(-1, 0, 0), math3d.V3(-1, -1, -1), math3d.V3(-1, -1, 1), math3d.V3(-1, 1, 1), math3d.V3(-1, 1, -1)},
		{math3d.V3(1, 0, 0), math3d.V3(1, -1, 1), math3d.V3(1, -1, -1), math3d.V3(1, 1, -1), math3d.V3(1, 1, 1)},
		{math3d.V3(0, 1, 0), math3d.V3(-1, 1, 1), math3d.V3(1, 1, 1), math3d.V3(1, 1, -1), math3d.V3(-1, 1, -1)},
		{math3d.V3(0, -1, 0), math3d.V3(-1, -1, -1), math3d.V3(1, -1, -1), math3d.V3(1, -1, 1), math3d.V3(-1, -1, 1)},
	}
	uvs := [4]math3d.Vec2{math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(1, 1), math3d.V2(0, 1)}

	b := render.NewChainBuilder(true, true)
	for fi, f := range faces {
		base := fi * 4
		for vi, p := range [4]math3d.Vec3{f.a, f.b, f.c, f.d} {
			m.Vertices = append(m.Vertices, p.Scale(0.5))
			m.Normals = append(m.Normals, f.n)
			m.UVs = append(m.UVs, uvs[vi])
		}
		c := func(i int) render.Corner { return render.Corner{Pos: base + i, UV: base + i, Norm: base + i} }
		b.AddTriangle(c(0), c(1), c(2))
		b.AddTriangle(c(0), c(2), c(3))
	}
	m.Faces = b.Faces()
	m.ComputeBounds()
	return m, nil
}

// chainTriangles sums the triangle count over a mesh chain.
func chainTriangles(m *render.Mesh) int {
	total := 0
	for ; m != nil; m = m.Next {
		total += m.TriangleCount()
	}
	return total
}

func run(modelPath string) error {
	// Parse background color
	var bgR, bgG, bgB uint8 = 30, 30, 40
	fmt.Sscanf(*bgColor, "%d,%d,%d", &bgR, &bgG, &bgB)

	var mesh *render.Mesh
	var err error
	title := "cube"
	if modelPath == "" {
		mesh, err = builtinCube()
		if err != nil {
			return err
		}
	} else {
		ext := strings.ToLower(filepath.Ext(modelPath))
		if ext != ".glb" && ext != ".gltf" {
			return fmt.Errorf("unsupported format: %s (use .glb or .gltf)", ext)
		}
		mesh, err = models.LoadGLB(modelPath)
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		title = filepath.Base(modelPath)
	}

	// Explicit texture overrides whatever the file embeds
	if *texturePath != "" {
		tex, err := render.LoadTexture(*texturePath)
		if err != nil {
			return fmt.Errorf("load texture: %w", err)
		}
		for m := mesh; m != nil; m = m.Next {
			m.Texture = tex
		}
	}

	// Center the model and scale it into a 2-unit box, done once through
	// the vertices so the per-frame model matrix stays a pure rotation.
	mn, mx := models.ChainBounds(mesh)
	center := mn.Add(mx).Scale(0.5)
	size := mx.Sub(mn)
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	if maxDim > 0 {
		s := 2.0 / maxDim
		for m := mesh; m != nil; m = m.Next {
			for i := range m.Vertices {
				m.Vertices[i] = m.Vertices[i].Sub(center).Scale(s)
			}
			m.ComputeBounds()
		}
	}

	// Create terminal
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	// One terminal cell shows two pixels stacked with a half block
	proj := render.Perspective
	if *orthoView {
		proj = render.Orthographic
	}
	newPipeline := func(w, h int) (*render.Renderer, *render.Framebuffer, error) {
		fbw, fbh := w, h*2
		r, err := render.NewRenderer(render.Config{Width: fbw, Height: fbh, Projection: proj})
		if err != nil {
			return nil, nil, err
		}
		fb := render.NewFramebuffer(fbw, fbh)
		r.SetImage(fb)
		r.NewZBuffer()
		r.SetPerspective(math.Pi/3, float64(fbw)/float64(fbh), 0.1, 100)
		if *orthoView {
			r.SetOrtho(-2, 2, -2, 2, 0.1, 100)
		}
		return r, fb, nil
	}

	renderer, fb, err := newPipeline(width, height)
	if err != nil {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
		return err
	}

	hud := NewHUD(title, chainTriangles(mesh))

	rotation := NewRotationState(*targetFPS)
	viewState := NewViewState()

	// Context for clean shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Input state
	inputTorque := struct{ pitch, yaw, roll float64 }{}
	const torqueStrength = 3.0

	// Mouse state
	var mouseDown bool
	var lastMouseX, lastMouseY int

	// The camera stays on the +Z axis looking at the origin; the model
	// rotates instead. Zoom moves the camera along the axis.
	cam := render.NewCamera()
	cameraZ := 5.0

	// Snapshot request, written by the event goroutine
	var snapshot bool

	// Event handler
	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				if r2, fb2, err := newPipeline(width, height); err == nil {
					renderer, fb = r2, fb2
				}

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape"):
					if viewState.LightMode {
						viewState.LightMode = false
					} else {
						cancel()
						return
					}
				case ev.MatchString("ctrl+c"):
					cancel()
					return
				case ev.MatchString("q"):
					inputTorque.roll = -torqueStrength
				case ev.MatchString("r"):
					rotation.Reset()
					cameraZ = 5.0
				case ev.MatchString("w", "up"):
					inputTorque.pitch = -torqueStrength
				case ev.MatchString("s", "down"):
					inputTorque.pitch = torqueStrength
				case ev.MatchString("a", "left"):
					inputTorque.yaw = -torqueStrength
				case ev.MatchString("d", "right"):
					inputTorque.yaw = torqueStrength
				case ev.MatchString("e"):
					inputTorque.roll = torqueStrength
				case ev.MatchString("space"):
					rotation.ApplyImpulse(
						(rand.Float64()-0.5)*1.5,
						(rand.Float64()-0.5)*1.5,
						(rand.Float64()-0.5)*1.5,
					)
				case ev.MatchString("+", "="):
					cameraZ = math.Max(1, cameraZ-0.5)
				case ev.MatchString("-", "_"):
					cameraZ = math.Min(20, cameraZ+0.5)
				case ev.MatchString("t"):
					viewState.TextureEnabled = !viewState.TextureEnabled
				case ev.MatchString("x"):
					if viewState.RenderMode == RenderModeWireframe {
						viewState.RenderMode = RenderModeTextured
					} else {
						viewState.RenderMode = RenderModeWireframe
					}
				case ev.MatchString("p"):
					snapshot = true
				case ev.MatchString("l"):
					viewState.LightMode = true
					viewState.PendingLight = viewState.LightPos
				case ev.MatchString("?"), ev.MatchString("shift+/"):
					viewState.ShowHUD = !viewState.ShowHUD
				}

			case uv.KeyReleaseEvent:
				switch {
				case ev.MatchString("w"), ev.MatchString("up"), ev.MatchString("s"), ev.MatchString("down"):
					inputTorque.pitch = 0
				case ev.MatchString("a"), ev.MatchString("left"), ev.MatchString("d"), ev.MatchString("right"):
					inputTorque.yaw = 0
				case ev.MatchString("q"), ev.MatchString("e"):
					inputTorque.roll = 0
				}

			case uv.MouseClickEvent:
				if viewState.LightMode {
					viewState.LightPos = viewState.PendingLight
					viewState.LightMode = false
				} else {
					mouseDown = true
					lastMouseX, lastMouseY = ev.X, ev.Y
				}

			case uv.MouseReleaseEvent:
				if !viewState.LightMode {
					mouseDown = false
				}

			case uv.MouseMotionEvent:
				if viewState.LightMode {
					viewState.PendingLight = ScreenToLightPos(ev.X, ev.Y, width, height)
				} else if mouseDown {
					dx := ev.X - lastMouseX
					dy := ev.Y - lastMouseY
					rotation.ApplyImpulse(float64(dy)*0.03, float64(dx)*0.03, 0)
					lastMouseX, lastMouseY = ev.X, ev.Y
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					cameraZ = math.Max(1, cameraZ-0.5)
				case uv.MouseWheelDown:
					cameraZ = math.Min(20, cameraZ+0.5)
				}
			}
		}
	}()

	// Main loop
	targetDuration := time.Second / time.Duration(*targetFPS)
	lastFrame := time.Now()

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now

		if dt > 0.1 {
			dt = 0.1
		}

		// Apply input torque and decay it (key release events unreliable)
		rotation.ApplyImpulse(
			inputTorque.pitch*dt,
			inputTorque.yaw*dt,
			inputTorque.roll*dt,
		)
		inputTorque.pitch *= 0.9
		inputTorque.yaw *= 0.9
		inputTorque.roll *= 0.9

		// Update springs (harmonica handles timing internally)
		rotation.Update()

		cam.Position = math3d.V3(0, 0, cameraZ)
		renderer.SetViewM(cam.ViewMatrix())
		renderer.SetModelM(math3d.RotateX(rotation.Pitch.Position).
			Mul(math3d.RotateY(rotation.Yaw.Position)).
			Mul(math3d.RotateZ(rotation.Roll.Position)))

		// The hemisphere point is where the light sits; it shines toward
		// the model at the origin.
		lightPos := viewState.LightPos
		if viewState.LightMode {
			lightPos = viewState.PendingLight
		}
		renderer.SetLightDirection(lightPos.Negate())

		fb.Clear(render.RGB(bgR, bgG, bgB))
		renderer.ClearZBuffer()
		renderer.Stats = render.Stats{}

		switch viewState.RenderMode {
		case RenderModeWireframe:
			err = renderer.DrawWireframe(mesh, render.RGB(0, 255, 128))
		default:
			shader := render.ShaderGouraud
			if viewState.TextureEnabled {
				shader |= render.ShaderTexture
			}
			err = renderer.DrawMesh(shader, mesh, true, true)
		}
		if err != nil {
			cleanup()
			return fmt.Errorf("draw: %w", err)
		}

		if snapshot {
			snapshot = false
			name := fmt.Sprintf("facet-%s.png", time.Now().Format("20060102-150405"))
			// a failed snapshot should not kill the viewer
			_ = fb.SavePNG(name)
		}

		// Display
		fb.Draw(term, uv.Rect(0, 0, width, height))
		if err := term.Display(); err != nil {
			cleanup()
			return fmt.Errorf("display: %w", err)
		}

		// HUD overlay (always update FPS, render clears lines when HUD off)
		hud.UpdateFPS()
		hud.Render(width, height, viewState, renderer.Stats)

		// Frame timing
		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
