// Package kernelbp implements loopy kernel belief propagation as a
// gas.VertexProgram.
//
// Vertices are either observed (data sinks holding one observation vector
// per neighbor) or hidden (holding coupling kernels per ordered neighbor
// pair). An edge s→t carries the factorization of its regularized kernel
// system and the belief vector beta flowing from t back to s.
//
// Edges whose solutions contain L_s are full rank and solved through
// Cholesky factors; otherwise the reduced-rank chain P, Q, R, W of an
// incomplete Cholesky factorization is used.
//
// Typical use:
//
//	prog, _ := kernelbp.NewProgram(1e-6)
//	eng, _ := kernelbp.NewEngine(g, prog, gas.WithCodec(kernelbp.Codec()))
//	_ = eng.SignalAll()
//	stats, err := eng.Run(ctx)
//	betas := kernelbp.CollectBetas(g)
package kernelbp
