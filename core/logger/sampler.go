package logger

import "sync/atomic"

// sampler lets through the first num of every den calls. A zero ratio lets
// everything through.
type sampler struct {
	num, den uint64
	n        atomic.Uint64
}

func newSampler(num, den int) *sampler {
	if num <= 0 || den <= 0 {
		return &sampler{}
	}
	if num > den {
		num = den
	}
	return &sampler{num: uint64(num), den: uint64(den)}
}

func (s *sampler) Allow() bool {
	if s.den == 0 {
		return true
	}
	return (s.n.Add(1)-1)%s.den < s.num
}
