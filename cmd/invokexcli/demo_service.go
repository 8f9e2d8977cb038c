package main

import "fmt"

// Greeter is the demo business object the CLI invokes over a real
// gobrpc connection, standing in for whatever object a generated proxy
// would normally target.
type Greeter struct{}

// GreetArgs is the demo method's single argument struct; gobrpc dispatch
// requires exactly one argument and one *reply plus a trailing error.
type GreetArgs struct {
	Name string
}

func (Greeter) Greet(args GreetArgs, reply *string) error {
	if args.Name == "" {
		return fmt.Errorf("invokexcli: name must not be empty")
	}
	*reply = "hello, " + args.Name
	return nil
}
