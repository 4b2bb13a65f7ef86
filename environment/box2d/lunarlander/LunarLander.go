// Package lunarlander implements the LunarLander environment with
// continuous actions on top of the Box2D physics engine
package lunarlander

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/timestep"
	"github.com/samuelfneumann/memddpg/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"
)

// World constants. Lengths are in pixels and are divided by Scale to
// get Box2D units.
const (
	FPS   float64 = 50
	Scale float64 = 30

	Gravity float64 = -10

	MainEnginePower float64 = 13
	SideEnginePower float64 = 0.6

	LegAway          float64 = 20
	LegDown          float64 = 18
	LegW             float64 = 2
	LegH             float64 = 8
	LegSpringTorque  float64 = 40
	SideEngineHeight float64 = 14
	SideEngineAway   float64 = 12

	Chunks int = 11

	ViewportW float64 = 600
	ViewportH float64 = 400

	InitialX      float64 = ViewportW / Scale / 2
	InitialY      float64 = ViewportH / Scale
	InitialRandom float64 = 1000

	ObservationDims     int     = 8
	ActionDims          int     = 2
	MaxContinuousAction float64 = 1
	MinContinuousAction float64 = -MaxContinuousAction
)

// Collision categories
const (
	groundCategory = 0x0001
	landerCategory = 0x0010
	legCategory    = 0x0020
)

// Body types
const (
	staticBody  = 0
	dynamicBody = 2
)

var landerPoly = [][2]float64{
	{-14, 17}, {-17, 0}, {-17, -10}, {17, -10}, {17, 0}, {14, 17},
}

// LunarLander implements the LunarLander environment. The agent fires
// the engines of a lander to bring it to rest on a landing pad at the
// centre of randomly generated terrain.
//
// Observations are the position of the lander relative to the pad, its
// linear velocity, its angle, its angular velocity, and whether each
// leg touches the ground.
//
// Actions are 2-dimensional in [-1, 1]. The first dimension throttles
// the main engine, which fires at between 50% and 100% power for
// positive values and is off otherwise. The second dimension fires the
// left or right orientation engine at between 50% and 100% power when
// its magnitude is above 0.5.
type LunarLander struct {
	*Land
	world box2d.B2World
	rng   distuv.Uniform

	moon   *box2d.B2Body
	lander *box2d.B2Body
	legs   [2]*box2d.B2Body

	legContact [2]bool
	gameOver   bool
	helipadY   float64

	mainPower float64
	sidePower float64

	discount float64
	lastStep timestep.TimeStep
}

// New creates and returns a new LunarLander together with its first
// timestep. The seed determines the terrain, the initial push given to
// the lander, and the dispersion of the engines.
func New(task *Land, discount float64, seed uint64) (*LunarLander,
	timestep.TimeStep, error) {
	l := &LunarLander{
		Land:     task,
		world:    box2d.MakeB2World(box2d.MakeB2Vec2(0, Gravity)),
		rng:      distuv.Uniform{Min: 0, Max: 1, Src: rand.NewSource(seed)},
		discount: discount,
	}
	task.env = l

	if err := validateStart(task.Start()); err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return l, l.Reset(), nil
}

// validateStart checks that a start state of (x, y, initial force)
// places the lander within the viewport, above the terrain
func validateStart(start *mat.VecDense) error {
	if start.Len() != 3 {
		return fmt.Errorf("start should have 3 features (x, y, force) "+
			"have(%v)", start.Len())
	}
	if x := start.AtVec(0); x < 0 || x > ViewportW/Scale {
		return fmt.Errorf("x position %v outside the viewport", x)
	}
	if y := start.AtVec(1); y < ViewportH/Scale/2 || y > ViewportH/Scale {
		return fmt.Errorf("y position %v outside the sky", y)
	}
	if f := start.AtVec(2); f < 0 {
		return fmt.Errorf("initial force %v must be >= 0", f)
	}
	return nil
}

// BeginContact implements box2d.B2ContactListenerInterface. The episode
// is over once the body of the lander touches the ground.
func (l *LunarLander) BeginContact(contact box2d.B2ContactInterface) {
	a, b := contact.GetFixtureA().GetBody(), contact.GetFixtureB().GetBody()
	if a == l.lander || b == l.lander {
		l.gameOver = true
	}
	for i, leg := range l.legs {
		if a == leg || b == leg {
			l.legContact[i] = true
		}
	}
}

// EndContact implements box2d.B2ContactListenerInterface
func (l *LunarLander) EndContact(contact box2d.B2ContactInterface) {
	a, b := contact.GetFixtureA().GetBody(), contact.GetFixtureB().GetBody()
	for i, leg := range l.legs {
		if a == leg || b == leg {
			l.legContact[i] = false
		}
	}
}

// PreSolve implements box2d.B2ContactListenerInterface
func (l *LunarLander) PreSolve(box2d.B2ContactInterface, box2d.B2Manifold) {}

// PostSolve implements box2d.B2ContactListenerInterface
func (l *LunarLander) PostSolve(box2d.B2ContactInterface,
	*box2d.B2ContactImpulse) {
}

// destroy removes all bodies from the world
func (l *LunarLander) destroy() {
	if l.moon == nil {
		return
	}
	l.world.SetContactListener(nil)
	for _, body := range []*box2d.B2Body{l.moon, l.lander, l.legs[0],
		l.legs[1]} {
		l.world.DestroyBody(body)
	}
	l.moon, l.lander = nil, nil
	l.legs = [2]*box2d.B2Body{}
}

// Reset generates new terrain, drops a new lander, and returns the
// first timestep of the episode
func (l *LunarLander) Reset() timestep.TimeStep {
	l.destroy()
	l.world.SetContactListener(l)
	l.gameOver = false
	l.legContact = [2]bool{}

	start := l.Start()
	if err := validateStart(start); err != nil {
		panic(fmt.Sprintf("reset: %v", err))
	}

	l.createTerrain()
	l.createLander(start.AtVec(0), start.AtVec(1), start.AtVec(2))

	state := l.advance(mat.NewVecDense(ActionDims, nil))
	l.startShaping(state)

	l.lastStep = timestep.New(timestep.First, 0, l.discount, state, 0)
	return l.lastStep
}

// createTerrain creates the moon surface with a flat helipad at its
// centre
func (l *LunarLander) createTerrain() {
	w, h := ViewportW/Scale, ViewportH/Scale

	height := make([]float64, Chunks+1)
	for i := range height {
		height[i] = l.rng.Rand() * h / 2
	}
	chunkX := make([]float64, Chunks)
	for i := range chunkX {
		chunkX[i] = w / float64(Chunks-1) * float64(i)
	}

	l.helipadY = h / 4
	for i := Chunks/2 - 2; i <= Chunks/2+2; i++ {
		height[i] = l.helipadY
	}

	smoothY := make([]float64, Chunks)
	for i := range smoothY {
		prev := Chunks
		if i > 0 {
			prev = i - 1
		}
		smoothY[i] = 0.33 * (height[prev] + height[i] + height[i+1])
	}

	moonDef := box2d.MakeB2BodyDef()
	moonDef.Type = staticBody
	l.moon = l.world.CreateBody(&moonDef)

	floor := box2d.NewB2EdgeShape()
	floor.Set(box2d.MakeB2Vec2(0, 0), box2d.MakeB2Vec2(w, 0))
	floorFix := box2d.MakeB2FixtureDef()
	floorFix.Shape = floor
	l.moon.CreateFixtureFromDef(&floorFix)

	for i := 0; i < Chunks-1; i++ {
		edge := box2d.NewB2EdgeShape()
		edge.Set(box2d.MakeB2Vec2(chunkX[i], smoothY[i]),
			box2d.MakeB2Vec2(chunkX[i+1], smoothY[i+1]))

		edgeFix := box2d.MakeB2FixtureDef()
		edgeFix.Shape = edge
		edgeFix.Density = 0
		edgeFix.Friction = 0.1
		l.moon.CreateFixtureFromDef(&edgeFix)
	}
}

// createLander creates the lander and its legs at (x, y) and pushes it
// with a random force of magnitude at most force along each axis
func (l *LunarLander) createLander(x, y, force float64) {
	landerDef := box2d.MakeB2BodyDef()
	landerDef.Type = dynamicBody
	landerDef.Position = box2d.MakeB2Vec2(x, y)
	l.lander = l.world.CreateBody(&landerDef)

	vertices := make([]box2d.B2Vec2, len(landerPoly))
	for i, v := range landerPoly {
		vertices[i] = box2d.MakeB2Vec2(v[0]/Scale, v[1]/Scale)
	}
	body := box2d.NewB2PolygonShape()
	body.Set(vertices, len(vertices))

	bodyFix := box2d.MakeB2FixtureDef()
	bodyFix.Shape = body
	bodyFix.Density = 5
	bodyFix.Friction = 0.1
	bodyFix.Restitution = 0
	bodyFix.Filter = filter(landerCategory)
	l.lander.CreateFixtureFromDef(&bodyFix)

	push := box2d.MakeB2Vec2(
		(2*l.rng.Rand()-1)*force,
		(2*l.rng.Rand()-1)*force,
	)
	l.lander.ApplyForceToCenter(push, true)

	for j, side := range []float64{-1, 1} {
		legDef := box2d.MakeB2BodyDef()
		legDef.Type = dynamicBody
		legDef.Position = box2d.MakeB2Vec2(x-side*LegAway/Scale, y)
		legDef.Angle = side * 0.05
		leg := l.world.CreateBody(&legDef)
		l.legs[j] = leg

		shape := box2d.NewB2PolygonShape()
		shape.SetAsBox(LegW/Scale, LegH/Scale)
		legFix := box2d.MakeB2FixtureDef()
		legFix.Shape = shape
		legFix.Density = 1
		legFix.Restitution = 0
		legFix.Filter = filter(legCategory)
		leg.CreateFixtureFromDef(&legFix)

		joint := box2d.MakeB2RevoluteJointDef()
		joint.BodyA = l.lander
		joint.BodyB = leg
		joint.LocalAnchorA = box2d.MakeB2Vec2(0, 0)
		joint.LocalAnchorB = box2d.MakeB2Vec2(side*LegAway/Scale,
			LegDown/Scale)
		joint.EnableMotor = true
		joint.EnableLimit = true
		joint.MaxMotorTorque = LegSpringTorque
		joint.MotorSpeed = 0.3 * side
		if side < 0 {
			joint.LowerAngle, joint.UpperAngle = 0.4, 0.9
		} else {
			joint.LowerAngle, joint.UpperAngle = -0.9, -0.4
		}
		l.world.CreateJoint(&joint)
	}
}

// filter returns a collision filter for a body of the given category
// which only collides with the ground
func filter(category uint16) box2d.B2Filter {
	f := box2d.MakeB2Filter()
	f.CategoryBits = category
	f.MaskBits = groundCategory
	return f
}

// Step fires the engines according to action, advances the world by
// one frame, and returns the next timestep and whether the episode
// has ended
func (l *LunarLander) Step(action *mat.VecDense) (timestep.TimeStep, bool) {
	if action.Len() != ActionDims {
		panic(fmt.Sprintf("step: actions should be %v-dimensional, "+
			"have(%v)", ActionDims, action.Len()))
	}
	clipped := mat.NewVecDense(ActionDims, nil)
	for i := 0; i < ActionDims; i++ {
		clipped.SetVec(i, floatutils.Clip(action.AtVec(i),
			MinContinuousAction, MaxContinuousAction))
	}

	state := l.lastStep.Observation
	nextState := l.advance(clipped)

	reward := l.GetReward(state, clipped, nextState)
	nextStep := timestep.New(timestep.Mid, reward, l.discount, nextState,
		l.lastStep.Number+1)
	l.End(&nextStep)

	l.lastStep = nextStep
	return nextStep, nextStep.Last()
}

// advance fires the engines and steps the world, returning the new
// observation
func (l *LunarLander) advance(action *mat.VecDense) *mat.VecDense {
	angle := l.lander.GetAngle()
	tip := [2]float64{math.Sin(angle), math.Cos(angle)}
	side := [2]float64{-tip[1], tip[0]}
	dispersion := [2]float64{
		(2*l.rng.Rand() - 1) / Scale,
		(2*l.rng.Rand() - 1) / Scale,
	}
	pos := l.lander.GetPosition()

	l.mainPower = 0
	if throttle := action.AtVec(0); throttle > 0 {
		l.mainPower = (floatutils.Clip(throttle, 0, 1) + 1) / 2

		ox := tip[0]*(4/Scale+2*dispersion[0]) + side[0]*dispersion[1]
		oy := -tip[1]*(4/Scale+2*dispersion[0]) - side[1]*dispersion[1]
		l.lander.ApplyLinearImpulse(
			box2d.MakeB2Vec2(-ox*MainEnginePower*l.mainPower,
				-oy*MainEnginePower*l.mainPower),
			box2d.MakeB2Vec2(pos.X+ox, pos.Y+oy),
			true,
		)
	}

	l.sidePower = 0
	if orient := action.AtVec(1); math.Abs(orient) > 0.5 {
		direction := floatutils.Sign(orient)
		l.sidePower = floatutils.Clip(math.Abs(orient), 0.5, 1)

		away := 3*dispersion[1] + direction*SideEngineAway/Scale
		ox := tip[0]*dispersion[0] + side[0]*away
		oy := -tip[1]*dispersion[0] - side[1]*away
		l.lander.ApplyLinearImpulse(
			box2d.MakeB2Vec2(-ox*SideEnginePower*l.sidePower,
				-oy*SideEnginePower*l.sidePower),
			box2d.MakeB2Vec2(pos.X+ox-tip[0]*17/Scale,
				pos.Y+oy+tip[1]*SideEngineHeight/Scale),
			true,
		)
	}

	l.world.Step(1/FPS, 6*30, 2*30)

	pos = l.lander.GetPosition()
	vel := l.lander.GetLinearVelocity()
	halfW, halfH := ViewportW/Scale/2, ViewportH/Scale/2

	state := []float64{
		(pos.X - halfW) / halfW,
		(pos.Y - (l.helipadY + LegDown/Scale)) / halfH,
		vel.X * halfW / FPS,
		vel.Y * halfH / FPS,
		floatutils.Wrap(l.lander.GetAngle(), -math.Pi, math.Pi),
		20 * l.lander.GetAngularVelocity() / FPS,
		boolToFloat(l.legContact[0]),
		boolToFloat(l.legContact[1]),
	}
	return mat.NewVecDense(ObservationDims, state)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (l *LunarLander) LastTimeStep() timestep.TimeStep {
	return l.lastStep
}

// DiscountSpec returns the discount specification of the environment
func (l *LunarLander) DiscountSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Discount,
		r1.Interval{Min: l.discount, Max: l.discount})
}

// ObservationSpec returns the observation specification of the
// environment. Positions and velocities are unbounded.
func (l *LunarLander) ObservationSpec() environment.Spec {
	unbounded := r1.Interval{Min: -math.MaxFloat64, Max: math.MaxFloat64}
	contact := r1.Interval{Min: 0, Max: 1}

	return environment.NewBoxSpec(environment.Observation,
		unbounded, unbounded, unbounded, unbounded,
		r1.Interval{Min: -math.Pi, Max: math.Pi},
		unbounded, contact, contact,
	)
}

// ActionSpec returns the action specification of the environment
func (l *LunarLander) ActionSpec() environment.Spec {
	b := r1.Interval{Min: MinContinuousAction, Max: MaxContinuousAction}
	return environment.NewBoxSpec(environment.Action, b, b)
}

// String converts the environment to a string representation
func (l *LunarLander) String() string {
	obs := l.lastStep.Observation
	return fmt.Sprintf("LunarLander  |  x: %.3f  |  y: %.3f  |  θ: %.3f  "+
		"|  legs: %v", obs.AtVec(0), obs.AtVec(1), obs.AtVec(4),
		l.legContact)
}
