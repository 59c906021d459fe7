// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Busy     *BusyCmd     `  @@` //nolint
	Carrier  *CarrierCmd  `| @@` //nolint
	Cca      *CcaCmd      `| @@` //nolint
	Ed       *EdCmd       `| @@` //nolint
	Energy   *EnergyCmd   `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Free     *FreeCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Inject   *InjectCmd   `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Pending  *PendingCmd  `| @@` //nolint
	Pib      *PibCmd      `| @@` //nolint
	Receive  *ReceiveCmd  `| @@` //nolint
	Save     *SaveCmd     `| @@` //nolint
	Sleep    *SleepCmd    `| @@` //nolint
	State    *StateCmd    `| @@` //nolint
	Stats    *StatsCmd    `| @@` //nolint
	Transmit *TransmitCmd `| @@` //nolint
}

// noinspection GoStructTag
type ChannelArg struct {
	Val int `@Int` //nolint
}

// noinspection GoStructTag
type PowerFlag struct {
	Val string `"power" @("-"? Int)` //nolint
}

// noinspection GoStructTag
type OnOff struct {
	On  bool `  @"on"`  //nolint
	Off bool `| @"off"` //nolint
}

// noinspection GoStructTag
type ForceFlag struct {
	Dummy struct{} `"force"` //nolint
}

// noinspection GoStructTag
type SleepCmd struct {
	Cmd struct{} `"sleep"` //nolint
}

// noinspection GoStructTag
type ReceiveCmd struct {
	Cmd     struct{}    `"receive"` //nolint
	Channel *ChannelArg `[ @@ ]`    //nolint
	Force   *ForceFlag  `[ @@ ]`    //nolint
}

// noinspection GoStructTag
type TransmitCmd struct {
	Cmd  struct{}      `"transmit"` //nolint
	Args []TransmitArg `( @@ )*`    //nolint
}

// noinspection GoStructTag
type TransmitArg struct {
	Peer    *PeerFlag    `  @@` //nolint
	Ack     *AckFlag     `| @@` //nolint
	NoCca   *NoCcaFlag   `| @@` //nolint
	Seq     *SeqFlag     `| @@` //nolint
	Dst     *DstFlag     `| @@` //nolint
	Channel *ChFlag      `| @@` //nolint
	Power   *PowerFlag   `| @@` //nolint
	Payload *PayloadFlag `| @@` //nolint
}

// noinspection GoStructTag
type PeerFlag struct {
	Dummy struct{} `"peer"` //nolint
}

// noinspection GoStructTag
type AckFlag struct {
	Dummy struct{} `"ack"` //nolint
}

// noinspection GoStructTag
type NoCcaFlag struct {
	Dummy struct{} `"nocca"` //nolint
}

// noinspection GoStructTag
type SeqFlag struct {
	Val int `"seq" @Int` //nolint
}

// noinspection GoStructTag
type DstFlag struct {
	Addr string `"dst" @Int` //nolint
}

// noinspection GoStructTag
type ChFlag struct {
	Val int `"ch" @Int` //nolint
}

// noinspection GoStructTag
type PayloadFlag struct {
	Hex string `"payload" @String` //nolint
}

// noinspection GoStructTag
type EdCmd struct {
	Cmd      struct{} `"ed"`       //nolint
	Channel  *int     `( @Int`     //nolint
	Duration *int     `  @Int? )?` //nolint
}

// noinspection GoStructTag
type CcaCmd struct {
	Cmd     struct{}    `"cca"`  //nolint
	Channel *ChannelArg `[ @@ ]` //nolint
}

// noinspection GoStructTag
type CarrierCmd struct {
	Cmd     struct{}    `"carrier"` //nolint
	Channel *ChannelArg `[ @@ ]`    //nolint
	Power   *PowerFlag  `[ @@ ]`    //nolint
}

// noinspection GoStructTag
type PendingCmd struct {
	Cmd    struct{}      `"pending"`  //nolint
	Add    *PendingAddr  `( "add" @@` //nolint
	Del    *PendingAddr  `| "del" @@` //nolint
	Clear  *PendingClear `| @@`       //nolint
	Enable *OnOff        `| @@ )?`    //nolint
}

// noinspection GoStructTag
type PendingAddr struct {
	Kind string `@( "short" | "ext" )` //nolint
	Addr string `@Int`                 //nolint
}

// noinspection GoStructTag
type PendingClear struct {
	Dummy struct{} `"clear"`                 //nolint
	Kind  string   `[ @( "short" | "ext" ) ]` //nolint
}

// noinspection GoStructTag
type InjectCmd struct {
	Cmd     struct{}    `"inject"` //nolint
	CrcErr  *CrcErrFlag `[ @@ ]`   //nolint
	Channel *ChFlag     `[ @@ ]`   //nolint
	Hex     string      `@String`  //nolint
}

// noinspection GoStructTag
type CrcErrFlag struct {
	Dummy struct{} `"crcerr"` //nolint
}

// noinspection GoStructTag
type BusyCmd struct {
	Cmd     struct{}   `"busy"` //nolint
	Channel int        `@Int`   //nolint
	Busy    *OnOff     `( @@`   //nolint
	Level   *LevelFlag `| @@ )` //nolint
}

// noinspection GoStructTag
type LevelFlag struct {
	Val int `"level" @Int` //nolint
}

// noinspection GoStructTag
type EnergyCmd struct {
	Cmd  struct{}  `"energy"` //nolint
	Save *SaveFlag `( @@ )?`  //nolint
	Name string    `@String?` //nolint
}

// noinspection GoStructTag
type SaveFlag struct {
	Dummy struct{} `"save"` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd  struct{}  `"go"`                                     //nolint
	Time string    `( @((Int|Float) ["us"|"ms"|"s"|"m"|"h"])` //nolint
	Ever *EverFlag `| @@ )`                                   //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type StateCmd struct {
	Cmd struct{} `"state"` //nolint
}

// noinspection GoStructTag
type StatsCmd struct {
	Cmd struct{} `"stats"` //nolint
}

// noinspection GoStructTag
type PibCmd struct {
	Cmd  struct{} `"pib"`   //nolint
	Args []PibArg `( @@ )*` //nolint
}

// noinspection GoStructTag
type PibArg struct {
	Channel     *ChFlag    `  @@`               //nolint
	PanId       *string    `| "pan" @Int`       //nolint
	ShortAddr   *string    `| "short" @Int`     //nolint
	ExtAddr     *string    `| "ext" @Int`       //nolint
	Power       *PowerFlag `| @@`               //nolint
	Promiscuous *OnOff     `| "promiscuous" @@` //nolint
	AutoAck     *OnOff     `| "autoack" @@`     //nolint
}

// noinspection GoStructTag
type FreeCmd struct {
	Cmd struct{} `"free"` //nolint
}

// noinspection GoStructTag
type SaveCmd struct {
	Cmd struct{} `"save"` //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                   //nolint
	Level string   `[ @( "trace" | "debug" | "info" | "note" | "warn" | "error" | "off" ) ]` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`     //nolint
	HelpTopic string   `[ @Ident ]` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}
