/*
Package protocol - the wire protocol of simpletun

1. Frame - length prefixed packet on the connection

2. Handshake - one-shot username / password exchange before any packet flows

3. Bridge - forward packets between the virtual interface and the connection

Handshake (Initiator = Client, Responder = Server):

	Initiator                              Responder
	    | ---- username ------------------>  |  compare
	    | <--- "Finished" ----------------   |
	    | ---- password ------------------>  |  compare
	    | <--- "Finished" ----------------   |
	    | ---- "Finish" ------------------>  |
	    | <--- "R00" | "R01" | "R02" | "R03" |

Bridge:

	+--------+  ReadPacket   +--------------+  WriteFrame   +------------+
	|        | ------------> |              | ------------> |            |
	| Device |               | bridge.Serve |               | connection |
	|        | <------------ |   (select)   | <------------ |            |
	+--------+  WritePacket  +--------------+    Decode     +------------+
*/
package protocol
