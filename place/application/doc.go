// Package application contém o caso de uso de colocação de pixels.
//
// Ele depende apenas do pacote domain e não conhece net/http, disco ou Redis.
// Ex.: Engine.Handle(ctx, id, "p42") devolve um Result (Outcome + detalhes).
package application
