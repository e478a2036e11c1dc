package nn

// SGD is stochastic gradient descent with classical momentum and no
// dampening: v = m·v + g, p = p - lr·v. The first step seeds v with g.
type SGD struct {
	LR       float32
	Momentum float32
	velocity map[string][]float32
}

func NewSGD(lr, momentum float32) *SGD {
	return &SGD{LR: lr, Momentum: momentum, velocity: make(map[string][]float32)}
}

// Step applies one update to every parameter.
func (o *SGD) Step(params []Param) {
	for _, p := range params {
		if o.Momentum == 0 {
			for i, g := range p.Grad {
				p.Value.Data[i] -= o.LR * g
			}
			continue
		}

		v, ok := o.velocity[p.Name]
		if !ok {
			v = append([]float32(nil), p.Grad...)
			o.velocity[p.Name] = v
		} else {
			for i, g := range p.Grad {
				v[i] = o.Momentum*v[i] + g
			}
		}
		for i := range p.Value.Data {
			p.Value.Data[i] -= o.LR * v[i]
		}
	}
}
