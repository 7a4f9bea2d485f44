package mbus

import "time"

// std — общий для процесса движок, с которым работают функции пакета.
var std = New()

// Default возвращает общий движок процесса.
func Default() *Engine { return std }

func Init(config string) error { return std.Init(config) }

func Exit() error { return std.Exit() }

func Publish(name string) (*Handle, error) { return std.Publish(name) }

func Subscribe(name string) (*Handle, error) { return std.Subscribe(name) }

func Send(h *Handle, data []byte) error { return h.Send(data) }

func Recv(h *Handle, timeout time.Duration, fn ReaderFunc) error { return h.Recv(timeout, fn) }

func Peek(h *Handle, fn ReaderFunc) error { return h.Peek(fn) }
