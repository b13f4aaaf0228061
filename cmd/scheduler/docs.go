package main

//go:generate swag init -g cmd/scheduler/main.go -o docs

// @title           AutoDCA Scheduler API
// @version         0.1.0
// @description     Recurring token purchase plans, controller capabilities, and execution events.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
