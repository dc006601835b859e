// Package handshake runs the server side of the SRP login exchange for one
// connection.
//
// A Session is driven by inbound messages tagged with a phase number:
//
//	server -> client  {phase:1}                              start
//	client -> server  {phase:2, data:{identity, clientPublic}}
//	server -> client  {phase:3, data:{salt, serverPublic}}
//	client -> server  {phase:3}                              compute u
//	server -> client  {phase:4}
//	client -> server  {phase:5}                              compute K
//	server -> client  {phase:6}
//	client -> server  {phase:7, data:{clientProof}}
//	server -> client  {phase:8, data:{serverProof, accessToken}} then close
//
// Every handler checks that the session sits in the state directly before it.
// Anything else, including a replayed phase 2, closes the connection with an
// error status. Values derived in a phase are stored in a struct owned by that
// phase, so later phases cannot observe a value that has not been computed.
//
// The package knows nothing about the wire. Transports adapt a real
// connection to the Transport and Receiver interfaces.
package handshake
