// Package builder drives a build: it walks the project tree in lexical
// order, cascades directory configuration, binds one program to every
// source file and runs the program lifecycle (prepare, destination,
// hooks, run) for each file in turn.
//
// A build is strictly sequential and is not cancelled half way; callers
// that want to stop (serve mode) do so between builds.
package builder
