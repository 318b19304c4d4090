package enums

import "slices"

// ChatRoomType tags a global chat room with its intended audience.
type ChatRoomType string

const (
	ChatRoomGeneral    ChatRoomType = "general"
	ChatRoomNurses     ChatRoomType = "nurses"
	ChatRoomDoctors    ChatRoomType = "doctors"
	ChatRoomAssistants ChatRoomType = "assistants"
)

var chatRoomTypes = []ChatRoomType{ChatRoomGeneral, ChatRoomNurses, ChatRoomDoctors, ChatRoomAssistants}

func (c ChatRoomType) String() string { return string(c) }

func (c ChatRoomType) IsValid() bool { return slices.Contains(chatRoomTypes, c) }

func ParseChatRoomType(raw string) (ChatRoomType, error) {
	return parse("chat room type", raw, chatRoomTypes)
}
